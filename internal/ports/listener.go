package ports

// Listener is an inbound adapter that accepts work from the network
type Listener interface {
	// Start binds the listener and serves in the background
	Start() error

	// Stop stops the listener
	Stop() error
}
