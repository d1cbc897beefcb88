package dto

import (
	"deskhub/internal/domain/offices"
	"deskhub/internal/domain/tags"
	"deskhub/internal/domain/users"
)

// OfficeResource is the public office representation. Internal bookkeeping
// (owner foreign key, timestamps, tombstone) stays out; owner, images and
// tags are embedded as nested resources.
type OfficeResource struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Lat               float64         `json:"lat"`
	Lng               float64         `json:"lng"`
	Address           string          `json:"address"`
	PricePerDay       int64           `json:"price_per_day"`
	MonthlyDiscount   int             `json:"monthly_discount"`
	ApprovalStatus    string          `json:"approval_status"`
	Hidden            bool            `json:"hidden"`
	FeaturedImageID   string          `json:"featured_image_id,omitempty"`
	ReservationsCount int             `json:"reservations_count"`
	User              UserResource    `json:"user"`
	Images            []ImageResource `json:"images"`
	Tags              []TagResource   `json:"tags"`
}

type UserResource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ImageResource struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type TagResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Meta is the pagination block attached to collection responses.
type Meta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	LastPage int `json:"last_page"`
}

type OfficeCollection struct {
	Data []OfficeResource `json:"data"`
	Meta Meta             `json:"meta"`
}

type OfficeEnvelope struct {
	Data OfficeResource `json:"data"`
}

type ImageEnvelope struct {
	Data ImageResource `json:"data"`
}

type TagCollection struct {
	Data []TagResource `json:"data"`
}

// MapOfficeResource assembles the wire representation from the aggregate and
// its eagerly fetched attachments.
func MapOfficeResource(office *offices.Office, owner *users.User, tagList []*tags.Tag, activeReservations int) OfficeResource {
	images := make([]ImageResource, 0, len(office.Images))
	for _, img := range office.Images {
		images = append(images, ImageResource{ID: string(img.ID), Path: img.Path})
	}
	tagResources := make([]TagResource, 0, len(tagList))
	for _, tag := range tagList {
		tagResources = append(tagResources, TagResource{ID: string(tag.ID), Name: tag.Name})
	}
	var user UserResource
	if owner != nil {
		user = UserResource{ID: string(owner.ID), Name: owner.Name, Email: owner.Email}
	}
	return OfficeResource{
		ID:                string(office.ID),
		Title:             office.Title,
		Description:       office.Description,
		Lat:               office.Location.Lat,
		Lng:               office.Location.Lng,
		Address:           office.Address,
		PricePerDay:       office.PricePerDay,
		MonthlyDiscount:   office.MonthlyDiscount,
		ApprovalStatus:    string(office.ApprovalStatus),
		Hidden:            office.Hidden,
		FeaturedImageID:   string(office.FeaturedImageID),
		ReservationsCount: activeReservations,
		User:              user,
		Images:            images,
		Tags:              tagResources,
	}
}

// PageMeta computes pagination metadata for a fixed page size.
func PageMeta(total, page, perPage int) Meta {
	lastPage := total / perPage
	if total%perPage != 0 || lastPage == 0 {
		lastPage++
	}
	return Meta{Total: total, Page: page, PerPage: perPage, LastPage: lastPage}
}
