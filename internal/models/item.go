package models

import "time"

// Item represents the thing being auctioned. The owner of the item owns its auction.
type Item struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	Condition   ItemCondition `json:"condition"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ItemCondition describes the state of an item.
type ItemCondition string

// ItemCondition constants
const (
	ItemConditionNew  ItemCondition = "new"
	ItemConditionUsed ItemCondition = "used"
)

// Field limits for item listings.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 32768
)

// Valid reports whether c is a known condition.
func (c ItemCondition) Valid() bool {
	return c == ItemConditionNew || c == ItemConditionUsed
}

// CreateItemRequest represents a request to list an item together with its auction.
type CreateItemRequest struct {
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	Condition   ItemCondition `json:"condition"`
	Description string        `json:"description"`
	ClosingTime time.Time     `json:"closing_time"`
}

// CreateItemResponse is returned after an item and its auction have been created.
type CreateItemResponse struct {
	Item    *Item    `json:"item"`
	Auction *Auction `json:"auction"`
}
