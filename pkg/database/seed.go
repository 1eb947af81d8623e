package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fooddelivery/pkg/models"
)

// SeedStatuses creates the six fixed statuses with their fixed ids. It is
// safe to run on every start.
func SeedStatuses(db *gorm.DB) error {
	for _, status := range models.DefaultStatuses() {
		s := status
		if err := db.Where(models.Status{ID: s.ID}).FirstOrCreate(&s).Error; err != nil {
			return fmt.Errorf("seed status %s: %w", status.Name, err)
		}
	}
	return nil
}

var sampleDishes = []models.Dish{
	{Name: "Khachapuri Adjaruli", Description: "Boat-shaped bread with suluguni cheese and egg", CookingTime: 25},
	{Name: "Khinkali", Description: "Georgian dumplings with juicy meat filling", CookingTime: 30},
	{Name: "Satsivi", Description: "Chicken in walnut sauce with herbs", CookingTime: 40},
	{Name: "Lobio", Description: "Red beans with walnuts", CookingTime: 35},
	{Name: "Pork Mtsvadi", Description: "Grilled pork with onion and pomegranate", CookingTime: 20},
	{Name: "Chashushuli", Description: "Spicy meat stew with tomatoes and peppers", CookingTime: 45},
	{Name: "Pkhali", Description: "Spinach and walnut starter", CookingTime: 15},
	{Name: "Chakhokhbili", Description: "Stewed chicken with tomatoes", CookingTime: 50},
	{Name: "Kupaty", Description: "Grilled Georgian sausages", CookingTime: 25},
	{Name: "Elarji", Description: "Cornmeal porridge with suluguni", CookingTime: 30},
}

// SeedSample adds demo data. Each group is created only when absent, so
// existing rows are never touched.
func SeedSample(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		rating := 4.7
		var restaurant models.Restaurant
		err := tx.Where("name = ?", "Tbilisi").First(&restaurant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			restaurant = models.Restaurant{Name: "Tbilisi", Location: "15 Georgian St.", Rating: &rating}
			err = tx.Create(&restaurant).Error
		}
		if err != nil {
			return fmt.Errorf("seed restaurant: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Dish{}).Where("restaurant_id = ?", restaurant.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			dishes := make([]models.Dish, len(sampleDishes))
			copy(dishes, sampleDishes)
			for i := range dishes {
				dishes[i].RestaurantID = restaurant.ID
			}
			if err := tx.Create(&dishes).Error; err != nil {
				return fmt.Errorf("seed dishes: %w", err)
			}
		}

		if err := tx.Model(&models.Customer{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			customers := []models.Customer{
				{Phone: "+79161234567", FirstName: "Ivan", LastName: "Petrov"},
				{Phone: "+79262345678", FirstName: "Maria", LastName: "Sidorova"},
				{Phone: "+79363456789", FirstName: "Alexey", LastName: "Kozlov"},
			}
			if err := tx.Create(&customers).Error; err != nil {
				return fmt.Errorf("seed customers: %w", err)
			}
		}

		if err := tx.Model(&models.Courier{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			couriers := []models.Courier{
				{Phone: "+79464567890", FirstName: "Dmitry", LastName: "Ivanov", CarNumber: "A123BC"},
				{Phone: "+79565678901", FirstName: "Olga", LastName: "Nikolaeva", CarNumber: "B456DE"},
			}
			if err := tx.Create(&couriers).Error; err != nil {
				return fmt.Errorf("seed couriers: %w", err)
			}
		}
		return nil
	})
}
