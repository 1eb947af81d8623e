package models

import (
	"time"
)

// Fixed status ids. Orders always start as StatusAccepted.
const (
	StatusAccepted uint = iota + 1
	StatusPreparing
	StatusReady
	StatusOutForDelivery
	StatusDelivered
	StatusCancelled
)

var statusNames = map[uint]string{
	StatusAccepted:       "Accepted",
	StatusPreparing:      "Preparing",
	StatusReady:          "Ready",
	StatusOutForDelivery: "OutForDelivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// DefaultStatuses returns the six fixed statuses ordered by id.
func DefaultStatuses() []Status {
	statuses := make([]Status, 0, len(statusNames))
	for id := StatusAccepted; id <= StatusCancelled; id++ {
		statuses = append(statuses, Status{ID: id, Name: statusNames[id]})
	}
	return statuses
}

// IsKnownStatus reports whether id is one of the fixed statuses.
func IsKnownStatus(id uint) bool {
	_, ok := statusNames[id]
	return ok
}

type Status struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
}

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null;uniqueIndex" json:"phone" binding:"required,max=20"`
	FirstName string    `gorm:"size:100;not null" json:"first_name" binding:"required,max=100"`
	LastName  string    `gorm:"size:100;not null" json:"last_name" binding:"required,max=100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Restaurant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required,max=255"`
	Location  string    `gorm:"size:500;not null" json:"location" binding:"required,max=500"`
	Rating    *float64  `gorm:"type:decimal(3,2);check:rating >= 0 AND rating <= 5" json:"rating" binding:"omitempty,min=0,max=5"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Dish struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RestaurantID uint   `gorm:"not null;index" json:"restaurant_id" binding:"required"`
	Name         string `gorm:"size:255;not null" json:"name" binding:"required,max=255"`
	Description  string `gorm:"type:text" json:"description"`
	// CookingTime is in minutes.
	CookingTime int       `gorm:"not null;default:0" json:"cooking_time" binding:"min=0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type Courier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Phone     string    `gorm:"size:20;not null;uniqueIndex" json:"phone" binding:"required,max=20"`
	FirstName string    `gorm:"size:100;not null" json:"first_name" binding:"required,max=100"`
	LastName  string    `gorm:"size:100;not null" json:"last_name" binding:"required,max=100"`
	CarNumber string    `gorm:"size:20;not null;uniqueIndex" json:"car_number" binding:"required,max=20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Order struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id" binding:"required"`
	StatusID   uint      `gorm:"not null;index;default:1" json:"status_id"`
	OrderTime  time.Time `gorm:"not null" json:"order_time"`

	Customer *Customer `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Status   *Status   `gorm:"foreignKey:StatusID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type OrderItem struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	OrderID  uint `gorm:"not null;uniqueIndex:idx_order_items_order_dish" json:"order_id" binding:"required"`
	DishID   uint `gorm:"not null;uniqueIndex:idx_order_items_order_dish;index" json:"dish_id" binding:"required"`
	Quantity int  `gorm:"not null;default:1;check:quantity > 0" json:"quantity" binding:"required,min=1"`

	Order *Order `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Dish  *Dish  `gorm:"foreignKey:DishID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type Delivery struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OrderID      uint       `gorm:"not null;uniqueIndex" json:"order_id" binding:"required"`
	CourierID    *uint      `gorm:"index" json:"courier_id"`
	DeliveryTime *time.Time `json:"delivery_time"`

	Order   *Order   `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Courier *Courier `gorm:"foreignKey:CourierID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

type Review struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id" binding:"required"`
	Rating      int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating" binding:"required,min=1,max=5"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	Order *Order `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// All returns every model in dependency order, parents first.
func All() []interface{} {
	return []interface{}{
		&Status{}, &Customer{}, &Restaurant{}, &Courier{},
		&Dish{}, &Order{}, &OrderItem{}, &Delivery{}, &Review{},
	}
}
