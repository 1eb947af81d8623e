package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fooddelivery/pkg/models"
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one dish")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrDuplicateDish   = errors.New("dish appears more than once in the order")
	ErrUnknownCustomer = errors.New("customer does not exist")
	ErrUnknownDish     = errors.New("dish does not exist")
	ErrUnknownCourier  = errors.New("courier does not exist")
	ErrUnknownStatus   = errors.New("unknown order status")
	ErrOrderNotFound   = errors.New("order not found")
)

// Invalidator drops cached aggregates after the order history changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Line struct {
	DishID   uint `json:"dish_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required"`
}

type NewOrder struct {
	CustomerID uint   `json:"customer_id" binding:"required"`
	Lines      []Line `json:"items" binding:"required"`
	// CourierID picks the courier; nil means the first courier by id.
	CourierID *uint `json:"courier_id"`
}

type Details struct {
	Order    models.Order       `json:"order"`
	Items    []models.OrderItem `json:"items"`
	Delivery *models.Delivery   `json:"delivery,omitempty"`
	Review   *models.Review     `json:"review,omitempty"`
}

type Overview struct {
	ID           uint      `json:"id"`
	CustomerName string    `json:"customer_name"`
	StatusName   string    `json:"status_name"`
	OrderTime    time.Time `json:"order_time"`
	ItemsCount   int64     `json:"items_count"`
}

type Service struct {
	db          *gorm.DB
	log         logrus.FieldLogger
	invalidator Invalidator
	now         func() time.Time
}

// NewService returns an order service. invalidator may be nil.
func NewService(db *gorm.DB, log logrus.FieldLogger, invalidator Invalidator) *Service {
	return &Service{db: db, log: log, invalidator: invalidator, now: time.Now}
}

func (n NewOrder) validate() error {
	if len(n.Lines) == 0 {
		return ErrEmptyOrder
	}
	seen := make(map[uint]bool, len(n.Lines))
	for _, line := range n.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("dish %d: %w", line.DishID, ErrInvalidQuantity)
		}
		if seen[line.DishID] {
			return fmt.Errorf("dish %d: %w", line.DishID, ErrDuplicateDish)
		}
		seen[line.DishID] = true
	}
	return nil
}

// Place creates an order in status Accepted together with its items and,
// when a courier is available, its delivery. Everything happens in one
// transaction.
func (s *Service) Place(ctx context.Context, req NewOrder) (*Details, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var details Details
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Customer{}, req.CustomerID, ErrUnknownCustomer); err != nil {
			return err
		}

		dishIDs := make([]uint, 0, len(req.Lines))
		for _, line := range req.Lines {
			dishIDs = append(dishIDs, line.DishID)
		}
		var found int64
		if err := tx.Model(&models.Dish{}).Where("id IN ?", dishIDs).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(dishIDs)) {
			return ErrUnknownDish
		}

		courierID, err := pickCourier(tx, req.CourierID)
		if err != nil {
			return err
		}

		details.Order = models.Order{
			CustomerID: req.CustomerID,
			StatusID:   models.StatusAccepted,
			OrderTime:  s.now(),
		}
		if err := tx.Create(&details.Order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		details.Items = make([]models.OrderItem, 0, len(req.Lines))
		for _, line := range req.Lines {
			details.Items = append(details.Items, models.OrderItem{
				OrderID:  details.Order.ID,
				DishID:   line.DishID,
				Quantity: line.Quantity,
			})
		}
		if err := tx.Create(&details.Items).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		if courierID != nil {
			details.Delivery = &models.Delivery{OrderID: details.Order.ID, CourierID: courierID}
			if err := tx.Create(details.Delivery).Error; err != nil {
				return fmt.Errorf("create delivery: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": details.Order.ID,
		"items":    len(details.Items),
	}).Info("order placed")
	s.invalidate(ctx)
	return &details, nil
}

func pickCourier(tx *gorm.DB, requested *uint) (*uint, error) {
	if requested != nil {
		if err := mustExist(tx, &models.Courier{}, *requested, ErrUnknownCourier); err != nil {
			return nil, err
		}
		id := *requested
		return &id, nil
	}

	var couriers []models.Courier
	if err := tx.Order("id").Limit(1).Find(&couriers).Error; err != nil {
		return nil, err
	}
	if len(couriers) == 0 {
		return nil, nil
	}
	return &couriers[0].ID, nil
}

func mustExist(tx *gorm.DB, model interface{}, id uint, notFound error) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// SetStatus moves an order to one of the fixed statuses. Moving to
// Delivered stamps the delivery time if it is not set yet.
func (s *Service) SetStatus(ctx context.Context, orderID, statusID uint) error {
	if !models.IsKnownStatus(statusID) {
		return ErrUnknownStatus
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("status_id", statusID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		if statusID == models.StatusDelivered {
			return tx.Model(&models.Delivery{}).
				Where("order_id = ? AND delivery_time IS NULL", orderID).
				Update("delivery_time", s.now()).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"order_id": orderID, "status_id": statusID}).Info("order status changed")
	s.invalidate(ctx)
	return nil
}

func (s *Service) Details(ctx context.Context, orderID uint) (*Details, error) {
	db := s.db.WithContext(ctx)

	var details Details
	err := db.First(&details.Order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := db.Where("order_id = ?", orderID).Order("id").Find(&details.Items).Error; err != nil {
		return nil, err
	}

	var deliveries []models.Delivery
	if err := db.Where("order_id = ?", orderID).Order("id").Limit(1).Find(&deliveries).Error; err != nil {
		return nil, err
	}
	if len(deliveries) > 0 {
		details.Delivery = &deliveries[0]
	}

	var reviews []models.Review
	if err := db.Where("order_id = ?", orderID).Order("id").Limit(1).Find(&reviews).Error; err != nil {
		return nil, err
	}
	if len(reviews) > 0 {
		details.Review = &reviews[0]
	}
	return &details, nil
}

// Overview lists orders newest first with customer, status and item count.
func (s *Service) Overview(ctx context.Context) ([]Overview, error) {
	var rows []Overview
	err := s.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id, c.first_name || ' ' || c.last_name AS customer_name, s.name AS status_name, o.order_time, COUNT(oi.id) AS items_count").
		Joins("LEFT JOIN customers c ON c.id = o.customer_id").
		Joins("LEFT JOIN statuses s ON s.id = o.status_id").
		Joins("LEFT JOIN order_items oi ON oi.order_id = o.id").
		Group("o.id, c.first_name, c.last_name, s.name, o.order_time").
		Order("o.order_time DESC, o.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate cached statistics")
	}
}
