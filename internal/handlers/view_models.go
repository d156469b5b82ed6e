package handlers

import (
	"greektutor/internal/agent"
	"greektutor/internal/models"
)

type LoginViewData struct {
	Title    string
	Error    string
	Username string
	Success  string
}

type RegisterViewData struct {
	Title    string
	Error    string
	Username string
	Email    string
}

type DashboardViewData struct {
	Title      string
	User       *models.User
	Level      string
	Levels     []string
	VocabCount int
	DueCount   int
	Interests  []models.UserInterest
	Concepts   []models.ConceptMastery
	VocabSets  []models.VocabSet
	CSRFToken  string
	Error      string
}

type TutorViewData struct {
	Title     string
	User      *models.User
	Sessions  []*agent.Session
	Active    *agent.Session
	CSRFToken string
	Error     string
}
