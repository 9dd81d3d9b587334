package domain

import "time"

// Address is an entry in a customer's delivery address book.
type Address struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	RecipientName string    `json:"recipient_name"`
	Phone         string    `json:"phone"`
	AddressLine   string    `json:"address_line"`
	CreatedAt     time.Time `json:"created_at"`
}
