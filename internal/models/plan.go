package models

import "time"

type Plan struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}
