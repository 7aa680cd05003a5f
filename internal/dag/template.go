package dag

// Signature is the IO contract a template (Function or nested DAG) exposes
// to the tasks that invoke it.
type Signature struct {
	Name   string
	Inputs Inputs
	// OutputParameters and OutputArtifacts are the names the template produces.
	OutputParameters []string
	OutputArtifacts  []string
}

// TemplateRegistry resolves a task's template name to its IO contract.
type TemplateRegistry interface {
	Lookup(name string) (*Signature, error)
}

// Signature returns the IO contract of d when it is used as a nested template.
func (d *DAG) Signature() *Signature {
	sig := &Signature{Name: d.Name, Inputs: d.Inputs}
	for _, p := range d.Outputs.Parameters {
		sig.OutputParameters = append(sig.OutputParameters, p.Name)
	}
	for _, a := range d.Outputs.Artifacts {
		sig.OutputArtifacts = append(sig.OutputArtifacts, a.Name)
	}
	return sig
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

// CheckTemplate cross-checks the task's bindings against tmpl: every
// required template input must be bound, and every output the task exposes
// must be produced by the template.
func (t Task) CheckTemplate(tmpl *Signature) []error {
	var errs []error

	mismatch := func(kind, name, msg string) {
		errs = append(errs, &TemplateMismatchError{
			Task: t.Name, Template: tmpl.Name, Kind: kind, Name: name, Message: msg,
		})
	}

	for _, p := range tmpl.Inputs.Parameters {
		if !p.Required {
			continue
		}
		if _, err := t.Arguments.ParameterByName(p.Name); err != nil {
			mismatch("input parameter", p.Name, "is required by the template but has no task argument")
		}
	}

	for _, a := range tmpl.Inputs.Artifacts {
		if !a.Required {
			continue
		}
		if _, err := t.Arguments.ArtifactByName(a.Name); err != nil {
			mismatch("input artifact", a.Name, "is required by the template but has no task argument")
		}
	}

	for _, p := range t.Outputs.Parameters {
		if !contains(tmpl.OutputParameters, p.Name) {
			mismatch("output parameter", p.Name, "is not an output of the template")
		}
	}

	for _, a := range t.Outputs.Artifacts {
		if !contains(tmpl.OutputArtifacts, a.Name) {
			mismatch("output artifact", a.Name, "is not an output of the template")
		}
	}

	return errs
}
