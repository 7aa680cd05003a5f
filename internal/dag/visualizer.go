package dag

import (
	"fmt"
	"sort"
	"strings"
)

// Levels groups task names into topological levels: level 0 holds root
// tasks and every other task sits one level below its deepest dependency.
// Names inside a level keep declaration order. Unknown dependencies are
// ignored. Tasks caught in a cycle are returned with a CycleError.
func Levels(d *DAG) ([][]string, error) {
	ix := NewTaskIndex(d.Tasks)

	indegree := make(map[string]int, len(d.Tasks))
	dependents := make(map[string][]string, len(d.Tasks))
	var order []string
	for _, t := range d.Tasks {
		if _, seen := indegree[t.Name]; seen {
			continue
		}
		order = append(order, t.Name)
		indegree[t.Name] = 0
	}
	for _, name := range order {
		// Duplicate names are a uniqueness failure; the first declaration wins here.
		task, _ := d.GetTask(name)
		for _, dep := range uniqueStrings(task.Dependencies) {
			if !ix.Has(dep) {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var levels [][]string
	var current []string
	for _, name := range order {
		if indegree[name] == 0 {
			current = append(current, name)
		}
	}

	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, name := range current {
			for _, child := range dependents[name] {
				indegree[child]--
				if indegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		current = sortByOrder(next, order)
	}

	if placed < len(order) {
		var stuck []string
		for _, name := range order {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return levels, &CycleError{Path: stuck}
	}

	return levels, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sortByOrder(names, order []string) []string {
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	sort.SliceStable(names, func(i, j int) bool {
		return pos[names[i]] < pos[names[j]]
	})
	return names
}

// RenderASCII generates an ASCII representation of the DAG structure.
// The output shows topological levels with their tasks and dependency arrows.
// Uses portable ASCII characters only (no Unicode).
func RenderASCII(d *DAG) string {
	if len(d.Tasks) == 0 {
		return "DAG has no tasks to visualize."
	}

	levels, err := Levels(d)

	var sb strings.Builder
	sb.WriteString(renderHeader(d, len(levels)))
	sb.WriteString("\n")

	for i, level := range levels {
		sb.WriteString(renderLevel(d, i, level))

		if i < len(levels)-1 {
			sb.WriteString(renderLevelConnector())
		}
	}

	if err != nil {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Unplaced (cycle): %s\n", strings.Join(cycleMembers(err), ", "))
	}

	sb.WriteString("\n")
	sb.WriteString(renderDependencies(d))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())

	return sb.String()
}

func cycleMembers(err error) []string {
	if ce, ok := err.(*CycleError); ok {
		return ce.Path
	}
	return nil
}

// renderHeader renders the DAG title and summary.
func renderHeader(d *DAG, levelCount int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DAG: %s\n", d.Name)
	sb.WriteString(strings.Repeat("=", len(d.Name)+5) + "\n")
	fmt.Fprintf(&sb, "Levels: %d  |  Tasks: %d\n", levelCount, len(d.Tasks))
	return sb.String()
}

// renderLevel renders a single level with its tasks.
func renderLevel(d *DAG, index int, names []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[L%d]\n", index)

	for i, name := range names {
		prefix := "  |-"
		if i == len(names)-1 {
			prefix = "  +-"
		}
		sb.WriteString(renderTaskLine(d, prefix, name))
	}

	return sb.String()
}

// renderTaskLine renders a single task line.
func renderTaskLine(d *DAG, prefix, name string) string {
	task, err := d.GetTask(name)
	if err != nil {
		return fmt.Sprintf("%s %s\n", prefix, name)
	}

	var marks string
	if !task.IsRoot() {
		marks += " *"
	}
	if task.Loop != nil {
		marks += " (loop)"
	}
	return fmt.Sprintf("%s %s [%s]%s\n", prefix, task.Name, task.Template, marks)
}

// renderLevelConnector renders the connector between levels.
func renderLevelConnector() string {
	return "    |\n    v\n"
}

// renderDependencies renders the task dependency section.
func renderDependencies(d *DAG) string {
	var lines []string
	for _, t := range d.Tasks {
		if t.IsRoot() {
			continue
		}
		deps := append([]string(nil), t.Dependencies...)
		sort.Strings(deps)
		lines = append(lines, fmt.Sprintf("  %s --> %s\n", t.Name, strings.Join(deps, ", ")))
	}
	if len(lines) == 0 {
		return ""
	}
	sort.Strings(lines)

	var sb strings.Builder
	sb.WriteString("Task Dependencies:\n")
	sb.WriteString("------------------\n")
	for _, line := range lines {
		sb.WriteString(line)
	}
	return sb.String()
}

// renderLegend renders the legend explaining symbols.
func renderLegend() string {
	var sb strings.Builder
	sb.WriteString("Legend:\n")
	sb.WriteString("  * = has dependencies (see list above)\n")
	sb.WriteString("  (loop) = runs once per loop item\n")
	sb.WriteString("  --> = depends on\n")
	return sb.String()
}

// RenderCompact generates a compact single-line representation.
// Format: L0: [a, b] -> L1: [c] -> L2: [d, e]
func RenderCompact(d *DAG) string {
	levels, _ := Levels(d)
	if len(levels) == 0 {
		return "Empty DAG"
	}

	parts := make([]string, len(levels))
	for i, level := range levels {
		parts[i] = fmt.Sprintf("L%d: [%s]", i, strings.Join(level, ", "))
	}

	return strings.Join(parts, " -> ")
}

// RenderDOT renders the DAG as a Graphviz digraph. Edges point from a
// dependency to its dependent; edges carrying data are labelled with the
// referenced variables.
func RenderDOT(d *DAG) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", d.Name)
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box];\n")

	for _, t := range d.Tasks {
		shape := ""
		if t.Loop != nil {
			shape = ", style=dashed"
		}
		fmt.Fprintf(&sb, "  %q [label=%q%s];\n", t.Name, fmt.Sprintf("%s (%s)", t.Name, t.Template), shape)
	}

	for _, t := range d.Tasks {
		labels := dataLabels(t)
		for _, dep := range uniqueStrings(t.Dependencies) {
			if vars := labels[dep]; len(vars) > 0 {
				fmt.Fprintf(&sb, "  %q -> %q [label=%q];\n", dep, t.Name, strings.Join(vars, ", "))
				continue
			}
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep, t.Name)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// dataLabels maps producer task name to the variables t reads from it.
func dataLabels(t Task) map[string][]string {
	labels := make(map[string][]string)
	add := func(ref *Reference) {
		if ref != nil && ref.IsTask() && !contains(labels[ref.Name], ref.Variable) {
			labels[ref.Name] = append(labels[ref.Name], ref.Variable)
		}
	}
	for _, p := range t.Arguments.Parameters {
		add(p.From)
	}
	for _, a := range t.Arguments.Artifacts {
		add(a.From)
	}
	if t.Loop != nil {
		add(t.Loop.From)
	}
	return labels
}
