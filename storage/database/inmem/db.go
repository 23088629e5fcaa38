package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/social"
)

type (
	// DB lives as long as the process; nothing is persisted.
	DB struct {
		social *socialTable
		meta   *metadataTable
	}

	socialTable struct {
		sync.RWMutex
		sparks []*social.Spark // most recent first
		byID   map[string]*social.Spark
		echoes map[string][]social.Echo // spark ID -> echoes in arrival order
	}

	metadataTable struct {
		sync.RWMutex
		table map[string]role.Metadata
	}
)

func Open() *DB {
	return &DB{
		social: &socialTable{
			byID:   make(map[string]*social.Spark),
			echoes: make(map[string][]social.Echo),
		},
		meta: &metadataTable{table: make(map[string]role.Metadata)},
	}
}
