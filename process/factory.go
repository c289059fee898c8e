package process

// ConfigurationFactory builds configurations for callers that only know a
// path and an argument string, such as shell detection.
type ConfigurationFactory interface {
	Create(path, args string) (*Configuration, error)
}

// DefaultConfigurationFactory applies Options to every configuration it
// creates.
type DefaultConfigurationFactory struct {
	Options []ConfigOption
}

var _ ConfigurationFactory = DefaultConfigurationFactory{}

// Create returns a validated configuration for path with args.
func (f DefaultConfigurationFactory) Create(path, args string) (*Configuration, error) {
	opts := append([]ConfigOption{WithArguments(args)}, f.Options...)
	return NewConfiguration(path, opts...)
}
