package links

// Sink receives ordered, per-configuration status messages. The UI layer
// (CLI, IPC consumers) subscribes through it; the engine never blocks on a
// subscriber, so implementations must return promptly.
type Sink interface {
	Status(configID, message string)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(configID, message string)

func (f SinkFunc) Status(configID, message string) { f(configID, message) }
