// Package relation tracks the milter consumers attached to this daemon.
// Each consumer registers itself as a subdirectory of the peers directory;
// the reconciler publishes the milter endpoint into every consumer's local
// data. No registered consumer means the daemon must not render key
// material to disk.
package relation

// Peer is one registered milter consumer.
type Peer interface {
	// Name identifies the consumer.
	Name() string

	// SetLocal publishes one key into this daemon's side of the
	// relation data for the consumer.
	SetLocal(key, value string) error
}

// Registry exposes the currently registered milter consumers.
type Registry interface {
	// List returns every registered peer. An empty result is not an
	// error; it means no consumer is attached yet.
	List() ([]Peer, error)
}
