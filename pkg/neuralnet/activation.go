package neuralnet

// Activation encodes one activation function over a layer: it emits
// the constraints forcing the layer's output array to equal the
// function of the layer's pre-activation value. Apply may be invoked
// again on the same layer without duplicating variables; the repeat
// call's constraint additions fail on their names instead.
type Activation interface {
	Apply(l *Layer) error
}

// registry maps activation tags to encoders. Encoders register
// themselves in their init functions.
var registry = make(map[string]Activation)

// Register adds an activation encoder under a tag.
func Register(tag string, act Activation) {
	registry[tag] = act
}

// Get returns the encoder registered under a tag.
func Get(tag string) (Activation, bool) {
	act, ok := registry[tag]
	return act, ok
}

// Tags returns the registered activation tags, in no particular order.
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	return tags
}
