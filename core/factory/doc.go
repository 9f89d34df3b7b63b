// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[demand.Source]()
//	reg.Register("static", func(conf map[string]any) (demand.Source, error) {
//	    var c struct{ Value int64 `json:"value"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return demand.Static{Value: model.Power(c.Value)}, nil
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "static", Conf: map[string]any{"value": 8000}})
package factory
