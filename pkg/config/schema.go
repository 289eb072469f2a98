package config

// Option describes a single supported key of a configuration section.
type Option struct {
	// Name is the key as it appears in the INI file
	Name string

	// Default is the value used when the key is absent
	Default string

	// Description is printed by "io500 options"
	Description string

	// Required options have no default and must be set in the file
	Required bool
}

// Section describes the supported keys of a configuration section.
type Section struct {
	Name    string
	Options []Option
}

// Schema is the ordered list of supported sections.
type Schema []Section

func (s Schema) lookup(section, key string) (Option, bool) {
	for _, sec := range s {
		if sec.Name != section {
			continue
		}
		for _, opt := range sec.Options {
			if opt.Name == key {
				return opt, true
			}
		}
		return Option{}, false
	}
	return Option{}, false
}

func (s Schema) hasSection(section string) bool {
	for _, sec := range s {
		if sec.Name == section {
			return true
		}
	}
	return false
}
