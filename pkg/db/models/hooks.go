package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

func (i *OrderLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (a *SellerAccount) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

func (r *SettlementRecord) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (n *OrderNote) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}

func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
