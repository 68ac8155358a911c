package seed

// File is the top level of a seed YAML file.
type File struct {
	Sites []Entry `yaml:"sites"`
}

// Entry describes one site to create.
type Entry struct {
	DisplayName string `yaml:"displayName"`
	Hostname    string `yaml:"hostname"`
	Active      bool   `yaml:"active"`
}
