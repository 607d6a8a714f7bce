package scripting

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache holds compiled chip programs keyed by path and source digest,
// so racks that share a script compile it once.
type ProgramCache struct {
	programs *lru.Cache[string, *goja.Program]
}

func NewProgramCache(size int) (*ProgramCache, error) {
	if size <= 0 {
		size = 64
	}
	c, err := lru.New[string, *goja.Program](size)
	if err != nil {
		return nil, err
	}
	return &ProgramCache{programs: c}, nil
}

// Load reads and compiles path, reusing a cached program when the source is
// unchanged.
func (c *ProgramCache) Load(path string) (*goja.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(src)
	key := path + "@" + hex.EncodeToString(sum[:])
	if c != nil {
		if p, ok := c.programs.Get(key); ok {
			return p, nil
		}
	}
	p, err := goja.Compile(path, string(src), true)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if c != nil {
		c.programs.Add(key, p)
	}
	return p, nil
}

func (c *ProgramCache) Len() int {
	if c == nil {
		return 0
	}
	return c.programs.Len()
}
