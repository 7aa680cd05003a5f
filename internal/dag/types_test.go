package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Check_LoopItemConsistency(t *testing.T) {
	t.Parallel()

	itemArg := Arguments{Parameters: []ParameterArgument{{Name: "id", From: refPtr(ItemParameter("id"))}}}

	tests := map[string]struct {
		task    Task
		wantErr string
	}{
		"item reference without loop": {
			task:    Task{Name: "t1", Template: "f", Arguments: itemArg},
			wantErr: `cannot use "item" references in argument parameters if no "loop" is specified`,
		},
		"item reference with inline loop": {
			task: Task{Name: "t1", Template: "f", Arguments: itemArg, Loop: &Loop{Value: []any{"a", "b"}}},
		},
		"item reference with loop from input": {
			task: Task{Name: "t1", Template: "f", Arguments: itemArg, Loop: &Loop{From: refPtr(InputParameter("ids"))}},
		},
		"loop with both sources": {
			task: Task{
				Name: "t1", Template: "f",
				Loop: &Loop{From: refPtr(InputParameter("ids")), Value: []any{1}},
			},
			wantErr: `only one of "from" or "value"`,
		},
		"item reference with empty inline loop": {
			task: Task{Name: "t1", Template: "f", Arguments: itemArg, Loop: &Loop{Value: []any{}}},
		},
		"loop without source": {
			task:    Task{Name: "t1", Template: "f", Loop: &Loop{}},
			wantErr: `one of "from" or "value" is required`,
		},
		"loop from input with empty inline list": {
			task: Task{
				Name: "t1", Template: "f",
				Loop: &Loop{From: refPtr(InputParameter("ids")), Value: []any{}},
			},
			wantErr: `only one of "from" or "value"`,
		},
		"loop over artifact": {
			task:    Task{Name: "t1", Template: "f", Loop: &Loop{From: refPtr(TaskArtifact("t0", "files"))}},
			wantErr: "can only loop over",
		},
		"missing template": {
			task:    Task{Name: "t1"},
			wantErr: "template is required",
		},
		"missing name": {
			task:    Task{Template: "f"},
			wantErr: "name is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.task.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ConstructionError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDAGBytes_EmptyInlineLoop(t *testing.T) {
	t.Parallel()

	doc := `name: d
tasks:
  - name: t
    template: f
    loop:
      value: []
    arguments:
      parameters:
        - name: id
          from: "{{item}}"
`
	result, err := ParseDAGBytes([]byte(doc))
	require.NoError(t, err)

	loop := result.DAG.Tasks[0].Loop
	require.NotNil(t, loop)
	assert.NotNil(t, loop.Value)
	assert.Empty(t, loop.Value)
	assert.False(t, ValidateDAG(result.DAG).HasErrors())

	for _, format := range []Format{FormatYAML, FormatJSON} {
		data, err := MarshalDAG(result.DAG, format)
		require.NoError(t, err)

		again, err := ParseDAGBytes(data)
		require.NoError(t, err, "re-parse of:\n%s", data)
		require.NotNil(t, again.DAG.Tasks[0].Loop)
		assert.NotNil(t, again.DAG.Tasks[0].Loop.Value, "%s output keeps the empty list", format)
	}
}

func TestTask_Check_NestedErrorsNameTheTask(t *testing.T) {
	t.Parallel()

	task := Task{Name: "t1", Template: "f", Arguments: Arguments{Parameters: []ParameterArgument{{Name: "n"}}}}
	err := task.Check()

	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "t1", ce.Task)
	assert.Equal(t, "n", ce.Name)
	assert.Contains(t, err.Error(), `task "t1": parameter argument "n"`)
}

func TestTask_IsRoot(t *testing.T) {
	t.Parallel()

	assert.True(t, Task{Name: "a"}.IsRoot())
	assert.False(t, Task{Name: "b", Dependencies: []string{"a"}}.IsRoot())
}

func TestDAG_Check(t *testing.T) {
	t.Parallel()

	d := &DAG{Name: "d", Tasks: []Task{{Name: "a", Template: "f"}, {Name: "b"}}}
	err := d.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template is required")

	assert.Equal(t, []string{"a", "b"}, d.TaskNames())

	err = (&DAG{}).Check()
	assert.ErrorContains(t, err, "name is required")
}
