package rum

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_SnapshotNeverSeesPartialReplace(t *testing.T) {
	md := newMetadata()
	old := map[string]any{"a": 1, "b": 1, "c": 1}
	cur := map[string]any{"a": 2, "b": 2, "c": 2}
	md.replace(old)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if i%2 == 0 {
				md.replace(cur)
			} else {
				md.replace(old)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := md.snapshot()
		if !assert.Len(t, snap, 3) {
			break
		}
		if !assert.True(t, snap["a"] == snap["b"] && snap["b"] == snap["c"], "mixed snapshot %v", snap) {
			break
		}
	}
	wg.Wait()
}

func TestMetadata_MergeKeepsExistingKeys(t *testing.T) {
	md := newMetadata()
	assert.Nil(t, md.snapshot())

	md.merge(map[string]any{"a": 1})
	md.merge(map[string]any{"b": 2, "a": 3})
	assert.Equal(t, map[string]any{"a": 3, "b": 2}, md.snapshot())
}
