package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderedProduct is one requested product inside an approval request.
type OrderedProduct struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// ValidateOrderApproval applies the restaurant's approval rules to a paid
// order and settles the approval status. Rules: the restaurant must be
// active, every ordered product must exist and be available, the declared
// prices must match the catalog, and the order total must equal the sum of
// price times quantity. All violations collect into the ordered reasons list
// rather than aborting at the first one.
func ValidateOrderApproval(
	approval *OrderApproval,
	restaurant *Restaurant,
	products []OrderedProduct,
	totalAmount decimal.Decimal,
) []string {
	var failureMessages []string

	if !restaurant.Active {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Restaurant with id %s is currently not active!", restaurant.ID))
	}

	expectedTotal := decimal.Zero
	for _, ordered := range products {
		product, ok := restaurant.ProductByID(ordered.ProductID)
		if !ok {
			failureMessages = append(failureMessages,
				fmt.Sprintf("Product with id %s is not part of Restaurant: %s", ordered.ProductID, restaurant.ID))
			continue
		}

		if !product.Available {
			failureMessages = append(failureMessages,
				fmt.Sprintf("Product with id %s is not available!", ordered.ProductID))
			continue
		}

		if !ordered.Price.Equal(product.Price) {
			failureMessages = append(failureMessages,
				fmt.Sprintf("Price: %s is not valid for Product: %s",
					ordered.Price.StringFixed(2), ordered.ProductID))
			continue
		}

		expectedTotal = expectedTotal.Add(product.Price.Mul(decimal.NewFromInt(int64(ordered.Quantity))))
	}

	if len(failureMessages) == 0 && !totalAmount.Equal(expectedTotal) {
		failureMessages = append(failureMessages,
			fmt.Sprintf("Total price: %s is not correct for order: %s",
				totalAmount.StringFixed(2), approval.OrderID))
	}

	if len(failureMessages) > 0 {
		approval.Reject(failureMessages)
		return failureMessages
	}

	approval.Approve()
	return nil
}
