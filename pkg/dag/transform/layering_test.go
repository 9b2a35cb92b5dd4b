package transform

import (
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/segmenter/pkg/dag"
)

func TestLayers(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		edges [][2]string
		want  []int
	}{
		{"chain", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, []int{0, 1, 2}},
		{"diamond", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}, []int{0, 1, 1, 2}},
		{"longest path wins", []string{"a", "b", "c"}, [][2]string{{"a", "c"}, {"a", "b"}, {"b", "c"}}, []int{0, 1, 2}},
		{"disconnected", []string{"a", "b"}, nil, []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Layers(build(tt.ids, tt.edges))
			if err != nil {
				t.Fatalf("Layers() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Layers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayers_Cycle(t *testing.T) {
	g := build([]string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
	if _, err := Layers(g); !errors.Is(err, dag.ErrGraphHasCycle) {
		t.Errorf("Layers() error = %v, want %v", err, dag.ErrGraphHasCycle)
	}
}

func TestLayerCount(t *testing.T) {
	if got := LayerCount(nil); got != 0 {
		t.Errorf("LayerCount(nil) = %d, want 0", got)
	}
	if got := LayerCount([]int{0, 2, 1}); got != 3 {
		t.Errorf("LayerCount() = %d, want 3", got)
	}
}
