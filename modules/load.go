package modules

import (
	"github.com/iota-uz/lead-rotation/modules/rotation"
	"github.com/iota-uz/lead-rotation/pkg/application"
)

// BuiltInModules builds the modules every entrypoint loads.
func BuiltInModules(rotationOpts *rotation.ModuleOptions) []application.Module {
	return []application.Module{
		rotation.NewModule(rotationOpts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
