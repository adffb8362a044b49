package model

import "github.com/google/uuid"

// ExamCategory groups exams in the catalogue.
type ExamCategory struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
	Slug string `json:"slug" binding:"required,min=2,max=100,lowercase"`
}
