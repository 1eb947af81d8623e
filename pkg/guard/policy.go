package guard

import (
	"fmt"

	"fooddelivery/pkg/models"
)

// Relation is a set of child rows pointing at a parent through Column.
type Relation struct {
	Label  string
	Kind   models.Kind
	Column string

	// Verb, Noun and Nouns build refusal phrases like "used in 2 orders".
	Verb  string
	Noun  string
	Nouns string
}

func (r Relation) phrase(count int64) string {
	noun := r.Nouns
	if count == 1 {
		noun = r.Noun
	}
	return fmt.Sprintf("%s %d %s", r.Verb, count, noun)
}

// Ownership describes children that are removed together with the parent,
// provided none of them is referenced through Guard.
type Ownership struct {
	Children Relation
	Guard    Relation
}

// Policy is the deletion rule of one kind.
type Policy struct {
	// Dependents are reported by CheckDependents, in order.
	Dependents []Relation
	// Block refuses the deletion when any relation has rows.
	Block []Relation
	Owned *Ownership
	// Cascade relations are deleted before the parent, in order.
	Cascade []Relation
}

var (
	orderItemsOfOrder = Relation{
		Label: "Order items", Kind: models.KindOrderItem, Column: "order_id",
		Verb: "has", Noun: "order item", Nouns: "order items",
	}
	deliveriesOfOrder = Relation{
		Label: "Deliveries", Kind: models.KindDelivery, Column: "order_id",
		Verb: "has", Noun: "delivery", Nouns: "deliveries",
	}
	reviewsOfOrder = Relation{
		Label: "Reviews", Kind: models.KindReview, Column: "order_id",
		Verb: "has", Noun: "review", Nouns: "reviews",
	}
	orderItemsOfDish = Relation{
		Label: "Used in orders", Kind: models.KindOrderItem, Column: "dish_id",
		Verb: "used in", Noun: "order", Nouns: "orders",
	}
	dishesOfRestaurant = Relation{
		Label: "Dishes", Kind: models.KindDish, Column: "restaurant_id",
		Verb: "has", Noun: "dish", Nouns: "dishes",
	}
	ordersOfCustomer = Relation{
		Label: "Orders", Kind: models.KindOrder, Column: "customer_id",
		Verb: "has", Noun: "order", Nouns: "orders",
	}
	deliveriesOfCourier = Relation{
		Label: "Deliveries", Kind: models.KindDelivery, Column: "courier_id",
		Verb: "has", Noun: "delivery", Nouns: "deliveries",
	}
)

var policies = map[models.Kind]Policy{
	models.KindOrder: {
		Dependents: []Relation{orderItemsOfOrder, deliveriesOfOrder, reviewsOfOrder},
		Cascade:    []Relation{reviewsOfOrder, deliveriesOfOrder, orderItemsOfOrder},
	},
	models.KindDish: {
		Dependents: []Relation{orderItemsOfDish},
		Block:      []Relation{orderItemsOfDish},
	},
	models.KindRestaurant: {
		Dependents: []Relation{dishesOfRestaurant},
		Owned:      &Ownership{Children: dishesOfRestaurant, Guard: orderItemsOfDish},
	},
	models.KindCustomer: {
		Dependents: []Relation{ordersOfCustomer},
		Block:      []Relation{ordersOfCustomer},
	},
	models.KindCourier: {
		Dependents: []Relation{deliveriesOfCourier},
		Block:      []Relation{deliveriesOfCourier},
	},
}

// PolicyFor returns the deletion policy of kind. Kinds without a policy
// are deleted directly.
func PolicyFor(kind models.Kind) Policy {
	return policies[kind]
}
