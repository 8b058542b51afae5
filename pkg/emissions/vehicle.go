package emissions

import (
	"encoding/json"
	"strings"
)

// Category is the top-level vehicle class.
type Category string

const (
	CategoryCar   Category = "car"
	CategoryTruck Category = "truck"
	CategoryVan   Category = "van"
)

// CarSubtype is the powertrain of a car.
type CarSubtype string

const (
	Petrol   CarSubtype = "petrol"
	Diesel   CarSubtype = "diesel"
	Hybrid   CarSubtype = "hybrid"
	Electric CarSubtype = "electric"
)

// SizeSubtype is the size class of a truck or van.
type SizeSubtype string

const (
	Small  SizeSubtype = "small"
	Medium SizeSubtype = "medium"
	Large  SizeSubtype = "large"
)

// Vehicle is a closed set of vehicle kinds: Car, Truck or Van.
type Vehicle interface {
	Category() Category
	Subtype() string
	isVehicle()
}

// Car is a passenger vehicle.
type Car struct {
	Fuel CarSubtype
}

// Truck is a freight vehicle.
type Truck struct {
	Size SizeSubtype
}

// Van is a light freight vehicle.
type Van struct {
	Size SizeSubtype
}

func (Car) Category() Category   { return CategoryCar }
func (Truck) Category() Category { return CategoryTruck }
func (Van) Category() Category   { return CategoryVan }

func (c Car) Subtype() string   { return string(c.Fuel) }
func (t Truck) Subtype() string { return string(t.Size) }
func (v Van) Subtype() string   { return string(v.Size) }

func (Car) isVehicle()   {}
func (Truck) isVehicle() {}
func (Van) isVehicle()   {}

// ParseVehicle resolves a category/subtype key pair. Keys are matched
// case-insensitively; any pair outside the emission factor table fails.
func ParseVehicle(category, subtype string) (Vehicle, error) {
	cat := Category(strings.ToLower(strings.TrimSpace(category)))
	sub := strings.ToLower(strings.TrimSpace(subtype))

	var v Vehicle
	switch cat {
	case CategoryCar:
		v = Car{Fuel: CarSubtype(sub)}
	case CategoryTruck:
		v = Truck{Size: SizeSubtype(sub)}
	case CategoryVan:
		v = Van{Size: SizeSubtype(sub)}
	default:
		return nil, invalidInput("category", category, "must be one of car, truck, van")
	}

	if _, err := BaseFactor(v); err != nil {
		return nil, err
	}
	return v, nil
}

// BaseFactor returns the emission factor of a vehicle in kg CO2e per km.
func BaseFactor(v Vehicle) (float64, error) {
	switch v := v.(type) {
	case Car:
		switch v.Fuel {
		case Petrol:
			return 0.192, nil
		case Diesel:
			return 0.171, nil
		case Hybrid:
			return 0.118, nil
		case Electric:
			return 0.053, nil
		}
		return 0, invalidInput("subtype", v.Fuel, "car subtype must be one of petrol, diesel, hybrid, electric")
	case Truck:
		switch v.Size {
		case Small:
			return 0.207, nil
		case Medium:
			return 0.583, nil
		case Large:
			return 0.932, nil
		}
		return 0, invalidInput("subtype", v.Size, "truck subtype must be one of small, medium, large")
	case Van:
		switch v.Size {
		case Small:
			return 0.142, nil
		case Medium:
			return 0.217, nil
		case Large:
			return 0.293, nil
		}
		return 0, invalidInput("subtype", v.Size, "van subtype must be one of small, medium, large")
	case nil:
		return 0, invalidInput("vehicle", nil, "is required")
	}
	return 0, invalidInput("vehicle", v, "unsupported vehicle kind")
}

// VehicleProfile describes the vehicle driving a route.
type VehicleProfile struct {
	Vehicle Vehicle
	// Efficiency in [0,1]; higher lowers emissions by up to 30%.
	Efficiency float64
	// Capacity is seats for cars, kg for freight vehicles.
	Capacity float64
	// Utilization in [0,1] is the share of capacity in use.
	Utilization float64
}

// Validate checks the profile's ranges and vehicle key.
func (p VehicleProfile) Validate() error {
	if _, err := BaseFactor(p.Vehicle); err != nil {
		return err
	}
	if !inRange(p.Efficiency, 0, 1) {
		return invalidInput("efficiency", p.Efficiency, "must be between 0 and 1")
	}
	if !inRange(p.Utilization, 0, 1) {
		return invalidInput("utilization", p.Utilization, "must be between 0 and 1")
	}
	if !(p.Capacity >= 0) {
		return invalidInput("capacity", p.Capacity, "must not be negative")
	}
	return nil
}

type vehicleProfileJSON struct {
	Category    string  `json:"category"`
	Subtype     string  `json:"subtype"`
	Efficiency  float64 `json:"efficiency"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// MarshalJSON flattens the vehicle into category/subtype keys.
func (p VehicleProfile) MarshalJSON() ([]byte, error) {
	out := vehicleProfileJSON{
		Efficiency:  p.Efficiency,
		Capacity:    p.Capacity,
		Utilization: p.Utilization,
	}
	if p.Vehicle != nil {
		out.Category = string(p.Vehicle.Category())
		out.Subtype = p.Vehicle.Subtype()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses category/subtype keys through ParseVehicle.
func (p *VehicleProfile) UnmarshalJSON(data []byte) error {
	var in vehicleProfileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	v, err := ParseVehicle(in.Category, in.Subtype)
	if err != nil {
		return err
	}
	*p = VehicleProfile{
		Vehicle:     v,
		Efficiency:  in.Efficiency,
		Capacity:    in.Capacity,
		Utilization: in.Utilization,
	}
	return nil
}
