package domain

import (
	"fmt"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// ValidateAndInitiateOrder applies the order creation business rules: the
// restaurant must be active, every declared item price must match the catalog,
// and the order must pass its structural invariants. On success the order is
// initiated into the pending status. Pure function, no I/O.
func ValidateAndInitiateOrder(order *Order, restaurant *Restaurant) error {
	if err := validateRestaurant(restaurant); err != nil {
		return err
	}

	if err := validateItemPrices(order, restaurant); err != nil {
		return err
	}

	if err := order.Validate(); err != nil {
		return err
	}

	return order.Initiate()
}

// validateRestaurant rejects orders against inactive restaurants.
func validateRestaurant(restaurant *Restaurant) error {
	if !restaurant.Active {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("Restaurant with id %s is currently not active!", restaurant.ID))
	}
	return nil
}

// validateItemPrices confirms every declared item price against the catalog.
func validateItemPrices(order *Order, restaurant *Restaurant) error {
	for _, item := range order.Items {
		product, ok := restaurant.ProductByID(item.ProductID)
		if !ok {
			return apperrors.Wrap(apperrors.ErrInvalidInput,
				fmt.Sprintf("Product with id %s is not part of Restaurant: %s", item.ProductID, restaurant.ID))
		}

		if !item.Price.Equal(product.Price) {
			return apperrors.Wrap(apperrors.ErrInvalidInput,
				fmt.Sprintf("Order item price: %s is not valid for Product: %s",
					item.Price.StringFixed(2), item.ProductID))
		}
	}

	return nil
}
