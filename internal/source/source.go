package source

import "fmt"

// Kind names the origin type of a source.
type Kind string

// KindFile is a YAML file on the local filesystem.
const KindFile Kind = "file"

// Descriptor identifies one origin of settings data. Two descriptors are the
// same source when both fields are equal.
type Descriptor struct {
	Kind    Kind
	Locator string
}

// File returns the descriptor of a YAML file.
func File(path string) Descriptor {
	return Descriptor{Kind: KindFile, Locator: path}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s", d.Kind, d.Locator)
}

// Resolver turns a descriptor into the mapping it contributes under the given
// environment. An empty environment selects the defaults section only.
type Resolver interface {
	Resolve(d Descriptor, environment string) (map[string]any, error)
}
