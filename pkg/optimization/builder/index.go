package builder

import (
	"time"

	"github.com/vsinha/distplan/pkg/domain/entities"
	"github.com/vsinha/distplan/pkg/optimization/milp"
)

// NoVar marks a variable that was not created
const NoVar milp.VarID = -1

// ProductionVars are the production decisions of one product on one day
type ProductionVars struct {
	Node       entities.NodeID
	Product    entities.ProductID
	Date       time.Time
	MixSize    int
	Production milp.VarID
	MixCount   milp.VarID
	Produced   milp.VarID
	Start      milp.VarID
}

// LaborVars are the labor decisions of a producing node on one day.
// Overtime is NoVar on non-fixed days.
type LaborVars struct {
	Node     entities.NodeID
	Date     time.Time
	Day      entities.LaborDay
	Used     milp.VarID
	Overtime milp.VarID
	Any      milp.VarID
}

type InventoryVar struct {
	Node    entities.NodeID
	Product entities.ProductID
	State   entities.State
	Date    time.Time
	Var     milp.VarID
}

// ShipmentVar is the quantity departing along a route on a date
type ShipmentVar struct {
	Route        entities.Route
	Product      entities.ProductID
	Departure    time.Time
	Arrival      time.Time
	ArrivalState entities.State
	Var          milp.VarID
}

// ConversionVar is a freeze (ambient→frozen) or thaw (frozen→target)
type ConversionVar struct {
	Node    entities.NodeID
	Product entities.ProductID
	From    entities.State
	To      entities.State
	Date    time.Time
	Var     milp.VarID
}

type ConsumedVar struct {
	State entities.State
	Var   milp.VarID
}

// DemandVars are the satisfaction variables of one aggregated demand entry
type DemandVars struct {
	Node     entities.NodeID
	Product  entities.ProductID
	Date     time.Time
	Quantity float64
	Consumed []ConsumedVar
	Shortage milp.VarID
}

type DisposalVar struct {
	Node    entities.NodeID
	Product entities.ProductID
	State   entities.State
	Date    time.Time
	Var     milp.VarID
}

type PalletVars struct {
	Node  entities.NodeID
	State entities.State
	Date  time.Time
	Count milp.VarID
	Entry milp.VarID
}

type TruckVar struct {
	Truck entities.TruckSchedule
	Date  time.Time
	Used  milp.VarID
}

// TruckLoadVar is the part of a shipment carried by one truck
type TruckLoadVar struct {
	TruckID string
	Route   entities.Route
	Product entities.ProductID
	Date    time.Time
	Load    milp.VarID
}

type TruckPalletVar struct {
	TruckID string
	Product entities.ProductID
	Date    time.Time
	Var     milp.VarID
}

// Index lists every variable the builder created, grouped by family in
// deterministic order
type Index struct {
	Dates        []time.Time
	Production   []ProductionVars
	Labor        []LaborVars
	Inventory    []InventoryVar
	Shipments    []ShipmentVar
	Conversions  []ConversionVar
	Demand       []DemandVars
	Disposals    []DisposalVar
	Pallets      []PalletVars
	Trucks       []TruckVar
	TruckLoads   []TruckLoadVar
	TruckPallets []TruckPalletVar
}

// interned composite keys
type (
	npt struct {
		n, p int32
		t    int32
	}
	nps struct {
		n, p int32
		s    entities.State
	}
	npst struct {
		n, p int32
		s    entities.State
		t    int32
	}
	nst struct {
		n int32
		s entities.State
		t int32
	}
	nt struct {
		n, t int32
	}
	flowKey struct {
		r, p, t int32 // t is the departure day
	}
)

// reachability computes, for every (node, product, state) stock can ever
// be in, the first horizon day it can be there. Sources are production on
// the first labor day and initial inventory on day 0; stock moves along
// routes (arriving transit days later) and through freeze/thaw.
func (b *builder) reachability() map[nps]int32 {
	earliest := make(map[nps]int32)
	var queue []nps
	relax := func(k nps, day int32) {
		if int(day) >= len(b.dates) {
			return
		}
		if cur, ok := earliest[k]; ok && cur <= day {
			return
		}
		earliest[k] = day
		queue = append(queue, k)
	}

	for n, node := range b.nodes {
		c := b.caps[node.ID]
		if !c.CanProduce {
			continue
		}
		first := int32(-1)
		for t, l := range b.labor {
			if l != nil {
				first = int32(t)
				break
			}
		}
		if first < 0 {
			continue
		}
		for p := range b.products {
			relax(nps{int32(n), int32(p), c.ProductionState}, first)
		}
	}
	for k, qty := range b.initial {
		if qty > 0 {
			relax(k, 0)
		}
	}

	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		day := earliest[k]
		node := b.nodes[k.n]
		c := b.caps[node.ID]

		for _, ri := range b.routesFrom[k.n] {
			r := b.in.Routes[ri]
			if r.TransportState != k.s {
				continue
			}
			dest := b.nodeIdx[r.Destination]
			arrival, ok := b.caps[r.Destination].ArrivalState(r.TransportState)
			if !ok {
				continue
			}
			relax(nps{dest, k.p, arrival}, day+int32(r.TransitDays))
		}
		if k.s == entities.Ambient && c.CanFreeze {
			relax(nps{k.n, k.p, entities.Frozen}, day)
		}
		if k.s == entities.Frozen && c.CanThaw {
			relax(nps{k.n, k.p, c.ThawTarget}, day)
		}
	}
	return earliest
}

// active reports whether stock of (n, p, s) can exist on day t
func (b *builder) active(n, p int32, s entities.State, t int32) bool {
	first, ok := b.earliest[nps{n, p, s}]
	return ok && t >= first && int(t) < len(b.dates)
}
