package models

import "time"

// FeeCategory is a pricing tier (e.g. mit-student, financial-aid, full).
type FeeCategory struct {
	Slug string `gorm:"primaryKey"`
	Name string

	// FreeDance marks categories admitted to a single dance without paying.
	FreeDance bool
}

// PersonStatus: member, prospective, guest, system (placeholder rows).
type PersonStatus struct {
	Slug   string `gorm:"primaryKey"`
	Name   string
	Member bool
}

// PersonFrequency ranks how often someone attends; Rank drives the
// gate roster ordering (frequent attendees first).
type PersonFrequency struct {
	Slug string `gorm:"primaryKey"`
	Name string
	Rank int `gorm:"index"`
}

// Person is never deleted: payments and attendance reference it.
type Person struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name  string
	Email string

	FeeCatSlug    string          `gorm:"not null"`
	FeeCat        FeeCategory     `gorm:"foreignKey:FeeCatSlug"`
	StatusSlug    string          `gorm:"not null"`
	Status        PersonStatus    `gorm:"foreignKey:StatusSlug"`
	FrequencySlug string          `gorm:"not null"`
	Frequency     PersonFrequency `gorm:"foreignKey:FrequencySlug"`
}
