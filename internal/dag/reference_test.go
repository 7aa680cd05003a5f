package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseReferenceString(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		want    Reference
		wantErr string
	}{
		"short input form": {
			input: "{{input.count}}",
			want:  InputParameter("count"),
		},
		"long input parameter form": {
			input: "{{ inputs.parameters.count }}",
			want:  InputParameter("count"),
		},
		"long input artifact form": {
			input: "inputs.artifacts.model",
			want:  InputArtifact("model"),
		},
		"short task form": {
			input: "{{tasks.t1.n}}",
			want:  TaskParameter("t1", "n"),
		},
		"long task artifact form": {
			input: "{{tasks.artifacts.t1.grid}}",
			want:  TaskArtifact("t1", "grid"),
		},
		"bare item": {
			input: "{{item}}",
			want:  ItemParameter(""),
		},
		"nested item key": {
			input: "{{item.country.city}}",
			want:  ItemParameter("country.city"),
		},
		"input with too many parts": {
			input:   "input.a.b.c",
			wantErr: "input.variable",
		},
		"task without variable": {
			input:   "tasks.t1",
			wantErr: "tasks.task-name.variable",
		},
		"unknown prefix": {
			input:   "{{outputs.x}}",
			wantErr: "not recognized",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseReferenceString(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestReferencesFromString(t *testing.T) {
	t.Parallel()

	refs, err := ReferencesFromString("run --grid {{inputs.grid}} --count {{ input.count }} > out.txt")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, InputParameter("grid"), refs[0])
	assert.Equal(t, InputParameter("count"), refs[1])

	refs, err = ReferencesFromString("no references here")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = ReferencesFromString("{{bogus.thing}}")
	assert.Error(t, err)
}

func TestReferenceExpressions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want []string
	}{
		"none":         {in: "echo hi", want: []string{}},
		"trimmed":      {in: "run {{ inputs.grid }} > {{input.count}}", want: []string{"inputs.grid", "input.count"}},
		"item":         {in: "{{item.id}}", want: []string{"item.id"}},
		"unterminated": {in: "{{inputs.grid", want: []string{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ReferenceExpressions(tt.in))
		})
	}
}

func TestReference_SourceAndSlot(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		ref        Reference
		wantSource RefSource
		wantSlot   Slot
		wantString string
	}{
		"input parameter": {
			ref:        InputParameter("count"),
			wantSource: SourceDAG,
			wantSlot:   ParameterSlot,
			wantString: "{{inputs.parameters.count}}",
		},
		"input artifact": {
			ref:        InputArtifact("model"),
			wantSource: SourceDAG,
			wantSlot:   ArtifactSlot,
			wantString: "{{inputs.artifacts.model}}",
		},
		"task parameter": {
			ref:        TaskParameter("t1", "n"),
			wantSource: SourceTask,
			wantSlot:   ParameterSlot,
			wantString: "{{tasks.parameters.t1.n}}",
		},
		"task artifact": {
			ref:        TaskArtifact("t1", "out"),
			wantSource: SourceTask,
			wantSlot:   ArtifactSlot,
			wantString: "{{tasks.artifacts.t1.out}}",
		},
		"item": {
			ref:        ItemParameter("id"),
			wantSource: SourceItem,
			wantSlot:   ParameterSlot,
			wantString: "{{item.id}}",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantSource, tt.ref.Source())
			assert.Equal(t, tt.wantSlot, tt.ref.Slot())
			assert.Equal(t, tt.wantString, tt.ref.String())
			assert.Equal(t, tt.wantSource == SourceTask, tt.ref.IsTask())
		})
	}
}

func TestReference_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, TaskParameter("t1", "n").Equal(TaskParameter("t1", "n")))
	assert.False(t, TaskParameter("t1", "n").Equal(TaskParameter("t2", "n")))
	assert.False(t, TaskParameter("t1", "n").Equal(TaskArtifact("t1", "n")))
	assert.False(t, InputParameter("n").Equal(ItemParameter("n")))
}

func TestParseReference_Classification(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		doc     string
		slot    Slot
		want    Reference
		wantErr string
	}{
		"name present means task reference": {
			doc:  "{name: t1, variable: n}",
			slot: ParameterSlot,
			want: TaskParameter("t1", "n"),
		},
		"no name means input reference": {
			doc:  "{variable: count}",
			slot: ParameterSlot,
			want: InputParameter("count"),
		},
		"explicit item type": {
			doc:  "{type: item, variable: id}",
			slot: ParameterSlot,
			want: ItemParameter("id"),
		},
		"artifact slot converts task kind": {
			doc:  "{type: tasks, name: t1, variable: out}",
			slot: ArtifactSlot,
			want: TaskArtifact("t1", "out"),
		},
		"artifact slot converts string form": {
			doc:  `"{{inputs.model}}"`,
			slot: ArtifactSlot,
			want: InputArtifact("model"),
		},
		"item cannot feed artifacts": {
			doc:     "{type: item, variable: id}",
			slot:    ArtifactSlot,
			wantErr: "cannot feed artifacts",
		},
		"task type without name": {
			doc:     "{type: tasks, variable: n}",
			slot:    ParameterSlot,
			wantErr: "missing the task name",
		},
		"input type with name": {
			doc:     "{type: inputs, name: t1, variable: n}",
			slot:    ParameterSlot,
			wantErr: "must not set a task name",
		},
		"unknown type": {
			doc:     "{type: outputs, variable: n}",
			slot:    ParameterSlot,
			wantErr: "unknown reference type",
		},
		"missing variable": {
			doc:     "{type: inputs}",
			slot:    ParameterSlot,
			wantErr: "missing a variable",
		},
		"string with two references": {
			doc:     `"{{input.a}}-{{input.b}}"`,
			slot:    ParameterSlot,
			wantErr: "exactly one reference",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var raw rawReference
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &raw))

			got, err := parseReference(raw, tt.slot)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReference_MarshalYAML(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(TaskArtifact("t1", "out"))
	require.NoError(t, err)
	assert.Equal(t, "type: tasks\nname: t1\nvariable: out\n", string(out))

	out, err = yaml.Marshal(InputParameter("count"))
	require.NoError(t, err)
	assert.Equal(t, "type: inputs\nvariable: count\n", string(out))
}
