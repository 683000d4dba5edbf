// Package seed loads a demo fiber tree into an empty inventory.
package seed

import (
	"context"
	"fmt"

	"github.com/HerbHall/ponplan/internal/inventory"
	"github.com/HerbHall/ponplan/pkg/models"
)

// DeviceCreator is the slice of the inventory module the seeder needs.
type DeviceCreator interface {
	Devices(ctx context.Context, types ...models.DeviceType) ([]models.PonDevice, error)
	CreateDevice(ctx context.Context, req inventory.CreateDeviceRequest) (*models.PonDevice, error)
}

// node is one demo device; children are created beneath it.
type node struct {
	name     string
	typ      models.DeviceType
	code     string
	location string
	children []node
}

// SeedDemoTree populates an empty inventory with one GPON OLT feeding a
// tube system, a saturated SUBMS and an FDB drop. It returns the number of
// devices created, or 0 when the inventory already holds devices.
func SeedDemoTree(ctx context.Context, inv DeviceCreator) (int, error) {
	existing, err := inv.Devices(ctx)
	if err != nil {
		return 0, fmt.Errorf("check inventory: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	created := 0
	for _, root := range demoTree() {
		n, err := createTree(ctx, inv, root, "")
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func createTree(ctx context.Context, inv DeviceCreator, n node, parentID string) (int, error) {
	d, err := inv.CreateDevice(ctx, inventory.CreateDeviceRequest{
		Name:       n.name,
		DeviceType: string(n.typ),
		TypeCode:   n.code,
		ParentID:   parentID,
		Location:   n.location,
	})
	if err != nil {
		return 0, fmt.Errorf("seed device %s: %w", n.name, err)
	}
	created := 1
	for _, child := range n.children {
		c, err := createTree(ctx, inv, child, d.ID)
		created += c
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func customers(prefix string, n int) []node {
	out := make([]node, n)
	for i := range out {
		out[i] = node{name: fmt.Sprintf("%s-%02d", prefix, i+1), typ: models.DeviceTypeCustomer}
	}
	return out
}

// demoTree returns 15 devices:
//
//	OLT-Central (GPON)
//	├── MS-Elm (1x16)
//	│   ├── SUBMS-Elm-A (1x4)  full: 4 customers
//	│   └── SUBMS-Elm-B (1x4)  2 customers
//	└── MS-Oak (1x8)
//	    └── FDB-Oak
//	        └── X2-Oak (1x2)   2 customers
func demoTree() []node {
	return []node{
		{
			name: "OLT-Central", typ: models.DeviceTypeOLT, code: "gpon", location: "Central office",
			children: []node{
				{
					name: "MS-Elm", typ: models.DeviceTypeMS, code: "1x16", location: "Cabinet 4, Elm St",
					children: []node{
						{name: "SUBMS-Elm-A", typ: models.DeviceTypeSUBMS, code: "1x4", children: customers("Elm-A", 4)},
						{name: "SUBMS-Elm-B", typ: models.DeviceTypeSUBMS, code: "1x4", children: customers("Elm-B", 2)},
					},
				},
				{
					name: "MS-Oak", typ: models.DeviceTypeMS, code: "1x8", location: "Cabinet 9, Oak Ave",
					children: []node{
						{
							name: "FDB-Oak", typ: models.DeviceTypeFDB,
							children: []node{
								{name: "X2-Oak", typ: models.DeviceTypeX2, code: "1x2", children: customers("Oak", 2)},
							},
						},
					},
				},
			},
		},
	}
}
