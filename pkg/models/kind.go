package models

import (
	"fmt"
	"strings"
)

// Kind identifies one of the nine entity types.
type Kind int

const (
	KindStatus Kind = iota + 1
	KindCustomer
	KindRestaurant
	KindDish
	KindCourier
	KindOrder
	KindOrderItem
	KindDelivery
	KindReview
)

type kindInfo struct {
	name   string
	plural string
	table  string
	// nameColumn is empty for kinds without a display name.
	nameColumn string
	newOne     func() interface{}
	newSlice   func() interface{}
}

var kinds = map[Kind]kindInfo{
	KindStatus: {"status", "statuses", "statuses", "name",
		func() interface{} { return &Status{} }, func() interface{} { return &[]Status{} }},
	KindCustomer: {"customer", "customers", "customers", "",
		func() interface{} { return &Customer{} }, func() interface{} { return &[]Customer{} }},
	KindRestaurant: {"restaurant", "restaurants", "restaurants", "name",
		func() interface{} { return &Restaurant{} }, func() interface{} { return &[]Restaurant{} }},
	KindDish: {"dish", "dishes", "dishes", "name",
		func() interface{} { return &Dish{} }, func() interface{} { return &[]Dish{} }},
	KindCourier: {"courier", "couriers", "couriers", "",
		func() interface{} { return &Courier{} }, func() interface{} { return &[]Courier{} }},
	KindOrder: {"order", "orders", "orders", "",
		func() interface{} { return &Order{} }, func() interface{} { return &[]Order{} }},
	KindOrderItem: {"order-item", "order-items", "order_items", "",
		func() interface{} { return &OrderItem{} }, func() interface{} { return &[]OrderItem{} }},
	KindDelivery: {"delivery", "deliveries", "deliveries", "",
		func() interface{} { return &Delivery{} }, func() interface{} { return &[]Delivery{} }},
	KindReview: {"review", "reviews", "reviews", "",
		func() interface{} { return &Review{} }, func() interface{} { return &[]Review{} }},
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindStatus, KindCustomer, KindRestaurant, KindDish, KindCourier,
		KindOrder, KindOrderItem, KindDelivery, KindReview,
	}
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Plural is the name used in URLs and CLI arguments.
func (k Kind) Plural() string {
	return kinds[k].plural
}

func (k Kind) Table() string {
	return kinds[k].table
}

func (k Kind) NameColumn() string {
	return kinds[k].nameColumn
}

// New returns a pointer to a zero model of this kind.
func (k Kind) New() interface{} {
	info, ok := kinds[k]
	if !ok {
		return nil
	}
	return info.newOne()
}

// NewSlice returns a pointer to an empty slice of models of this kind.
func (k Kind) NewSlice() interface{} {
	info, ok := kinds[k]
	if !ok {
		return nil
	}
	return info.newSlice()
}

// ParseKind accepts singular or plural names, case-insensitively.
// Underscores are treated as dashes so table names parse too.
func ParseKind(s string) (Kind, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, k := range Kinds() {
		info := kinds[k]
		if s == info.name || s == info.plural {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}
