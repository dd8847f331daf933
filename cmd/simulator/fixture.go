package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fixture is the reference data the simulator seeds before creating trips.
type fixture struct {
	Drivers  []fixtureDriver  `yaml:"drivers"`
	Trucks   []string         `yaml:"trucks"`
	Trailers []fixtureTrailer `yaml:"trailers"`
	Clients  []fixtureClient  `yaml:"clients"`
	Routes   []fixtureRoute   `yaml:"routes"`
}

type fixtureDriver struct {
	Name    string `yaml:"name"`
	Contact string `yaml:"contact"`
	License string `yaml:"license"`
}

type fixtureTrailer struct {
	Plate string `yaml:"plate"`
	Type  string `yaml:"type"`
	Size  string `yaml:"size"`
}

type fixtureClient struct {
	Name    string  `yaml:"name"`
	TaxID   string  `yaml:"tax_id"`
	Freight float64 `yaml:"freight"`
	DMTIFee float64 `yaml:"dmti_fee"`
}

type fixtureRoute struct {
	Origin       string  `yaml:"origin"`
	Destination  string  `yaml:"destination"`
	ShippingLine string  `yaml:"shipping_line"`
	Cost         float64 `yaml:"cost"`
}

const defaultFixture = `
drivers:
  - {name: Carlos Hernandez, contact: "7012-3344", license: "0614-250190-101-2"}
  - {name: Jose Ramirez, contact: "7855-1020", license: "0511-110388-102-5"}
  - {name: Mario Gonzalez, contact: "7320-9981", license: "0210-030785-103-1"}
trucks: [C-112233, C-445566, C-778899]
trailers:
  - {plate: RE-1001, type: container, size: 40ft}
  - {plate: RE-1002, type: container, size: 40ft}
  - {plate: RE-2001, type: flatbed, size: 20ft}
clients:
  - {name: Distribuidora Central, tax_id: "0614-010101-101-1", freight: 350, dmti_fee: 45}
  - {name: Textiles del Pacifico, tax_id: "0614-020202-102-2", freight: 420}
routes:
  - {origin: Puerto de Acajutla, destination: San Salvador, shipping_line: MSC, cost: 350}
  - {origin: Puerto de Acajutla, destination: Santa Ana, shipping_line: Maersk, cost: 300}
  - {origin: Puerto Cortes, destination: San Miguel, shipping_line: CMA CGM, cost: 520}
`

// loadFixture parses the YAML file at path, or the built-in fixture when
// path is empty.
func loadFixture(path string) (*fixture, error) {
	data := []byte(defaultFixture)
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
	}

	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (f *fixture) validate() error {
	switch {
	case len(f.Drivers) == 0:
		return errors.New("fixture has no drivers")
	case len(f.Trucks) == 0:
		return errors.New("fixture has no trucks")
	case len(f.Trailers) == 0:
		return errors.New("fixture has no trailers")
	case len(f.Clients) == 0:
		return errors.New("fixture has no clients")
	case len(f.Routes) == 0:
		return errors.New("fixture has no routes")
	}
	return nil
}
