package render

import (
	"errors"
	"fmt"
)

// ResourceID is a handle into a [Storage] arena. Handles are stable for the
// lifetime of the storage and cheap to copy into passes at setup time so
// per-frame execution performs no name lookups.
type ResourceID int32

// WindowView is the sentinel handle naming the final presentation target.
// The texture it resolves to is installed with [Storage.SetWindowView],
// typically once per window resize.
const WindowView ResourceID = -1

const invalidResource ResourceID = -2

var (
	errUnknownResource = errors.New("unknown render resource")
	errNoWindowView    = errors.New("no window view installed in storage")
)

// Storage owns the textures shared between render passes. Resources are
// registered by name at setup time and addressed by [ResourceID] afterwards.
type Storage struct {
	textures []*Texture
	names    map[string]ResourceID
	window   *Texture
}

// NewStorage returns an empty storage arena.
func NewStorage() *Storage {
	return &Storage{names: make(map[string]ResourceID)}
}

// AddTexture registers tex under name and returns its handle. Registering a
// name twice replaces the texture and returns the existing handle, which
// keeps handles held by passes valid across target resizes.
func (st *Storage) AddTexture(name string, tex *Texture) ResourceID {
	if tex == nil {
		panic("nil texture added to render storage")
	}
	if id, ok := st.names[name]; ok {
		st.textures[id] = tex
		return id
	}
	id := ResourceID(len(st.textures))
	st.textures = append(st.textures, tex)
	st.names[name] = id
	return id
}

// SetWindowView installs the texture backing the [WindowView] handle.
func (st *Storage) SetWindowView(tex *Texture) {
	st.window = tex
}

// Lookup returns the handle registered under name.
func (st *Storage) Lookup(name string) (ResourceID, error) {
	id, ok := st.names[name]
	if !ok {
		return invalidResource, fmt.Errorf("%w: %q", errUnknownResource, name)
	}
	return id, nil
}

// Texture resolves a handle to its texture.
func (st *Storage) Texture(id ResourceID) (*Texture, error) {
	if id == WindowView {
		if st.window == nil {
			return nil, errNoWindowView
		}
		return st.window, nil
	}
	if int(id) < 0 || int(id) >= len(st.textures) {
		return nil, fmt.Errorf("%w: id %d", errUnknownResource, id)
	}
	return st.textures[id], nil
}

// MustTexture resolves a handle validated at pass setup time.
func (st *Storage) MustTexture(id ResourceID) *Texture {
	tex, err := st.Texture(id)
	if err != nil {
		panic(err)
	}
	return tex
}
