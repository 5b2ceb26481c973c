package desktop

import (
	"fmt"
	"iter"

	"github.com/breeze-rmm/screencap/internal/logging"
)

var log = logging.L("desktop")

// Displays walks adapters by index and, within each adapter, outputs by
// index. The sequence is lazy, finite and cannot be restarted.
type Displays struct {
	api     API
	factory Factory

	adapter  Adapter // current adapter, nil between adapters
	nadapter uint32  // index of the current adapter
	noutput  uint32  // index of the next output to fetch
	nextID   OutputID
	done     bool
}

// EnumerateDisplays starts a new traversal using api.
func EnumerateDisplays(api API) (*Displays, error) {
	factory, err := api.CreateFactory()
	if err != nil {
		return nil, fmt.Errorf("create DXGI factory: %w", err)
	}
	return &Displays{api: api, factory: factory}, nil
}

// Next returns the next capturable display. The caller owns the returned
// Display and must Close it.
func (ds *Displays) Next() (*Display, bool) {
	for !ds.done {
		if ds.adapter == nil {
			adapter, err := ds.factory.EnumAdapter(ds.nadapter)
			if err != nil {
				if !isNotFound(err) {
					log.Warn("adapter enumeration stopped", "adapter", ds.nadapter, "error", err)
				}
				ds.finish()
				return nil, false
			}
			ds.adapter = adapter
			ds.noutput = 0
		}

		if d, ok := ds.nextOutput(); ok {
			return d, true
		}
	}
	return nil, false
}

// nextOutput reads the next output of the current adapter. Any failure,
// including the normal end of the list, abandons the rest of the adapter.
func (ds *Displays) nextOutput() (*Display, bool) {
	output, err := ds.adapter.EnumOutput(ds.noutput)
	if err != nil {
		if !isNotFound(err) {
			log.Warn("output enumeration failed, skipping adapter",
				"adapter", ds.nadapter, "output", ds.noutput, "error", err)
		}
		ds.nextAdapter()
		return nil, false
	}
	ds.noutput++

	desc, err := output.Desc()
	if err != nil {
		output.Release()
		log.Warn("output description unavailable, skipping adapter",
			"adapter", ds.nadapter, "output", ds.noutput-1, "error", err)
		ds.nextAdapter()
		return nil, false
	}

	dup, err := output.Duplicable()
	output.Release()
	if err != nil {
		log.Warn("output does not support duplication, skipping adapter",
			"adapter", ds.nadapter, "output", ds.noutput-1, "error", err)
		ds.nextAdapter()
		return nil, false
	}

	ds.adapter.AddRef()
	d := &Display{
		api:     ds.api,
		id:      ds.nextID,
		adapter: ds.adapter,
		output:  dup,
		desc:    desc,
	}
	ds.nextID++
	return d, true
}

func (ds *Displays) nextAdapter() {
	ds.adapter.Release()
	ds.adapter = nil
	ds.nadapter++
}

func (ds *Displays) finish() {
	ds.done = true
	if ds.adapter != nil {
		ds.adapter.Release()
		ds.adapter = nil
	}
	if ds.factory != nil {
		ds.factory.Release()
		ds.factory = nil
	}
}

// All yields the remaining displays. Displays not consumed by the loop
// body stay unenumerated; yielded ones belong to the caller.
func (ds *Displays) All() iter.Seq[*Display] {
	return func(yield func(*Display) bool) {
		for {
			d, ok := ds.Next()
			if !ok || !yield(d) {
				return
			}
		}
	}
}

// Collect drains the traversal into a slice and closes it.
func (ds *Displays) Collect() []*Display {
	defer ds.Close()
	var out []*Display
	for d := range ds.All() {
		out = append(out, d)
	}
	return out
}

// Close releases the factory and the current adapter reference. Displays
// already handed out keep their own references.
func (ds *Displays) Close() {
	ds.finish()
}
