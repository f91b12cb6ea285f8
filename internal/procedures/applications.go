package procedures

import (
	"context"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/pkg/models"
)

type learnerSubmitInput struct {
	FullName             string  `json:"fullName"`
	Email                string  `json:"email"`
	Phone                string  `json:"phone"`
	IDNumber             string  `json:"idNumber"`
	DateOfBirth          string  `json:"dateOfBirth"`
	Gender               string  `json:"gender"`
	Address              string  `json:"address"`
	City                 string  `json:"city"`
	Province             string  `json:"province"`
	PostalCode           string  `json:"postalCode"`
	HighestQualification string  `json:"highestQualification"`
	ProgramInterest      string  `json:"programInterest"`
	EmploymentStatus     string  `json:"employmentStatus"`
	ComputerAccess       string  `json:"computerAccess"`
	InternetAccess       string  `json:"internetAccess"`
	Motivation           string  `json:"motivation"`
	HearAboutUs          *string `json:"hearAboutUs"`
}

type clientSubmitInput struct {
	CompanyName           string  `json:"companyName"`
	RegistrationNumber    *string `json:"registrationNumber"`
	Industry              string  `json:"industry"`
	ContactPerson         string  `json:"contactPerson"`
	JobTitle              string  `json:"jobTitle"`
	Email                 string  `json:"email"`
	Phone                 string  `json:"phone"`
	CompanyAddress        string  `json:"companyAddress"`
	City                  string  `json:"city"`
	Province              string  `json:"province"`
	PostalCode            string  `json:"postalCode"`
	NumberOfEmployees     string  `json:"numberOfEmployees"`
	TrainingNeeds         string  `json:"trainingNeeds"`
	ServiceInterest       string  `json:"serviceInterest"`
	PreferredTrainingMode string  `json:"preferredTrainingMode"`
	EstimatedLearners     *string `json:"estimatedLearners"`
	Timeframe             *string `json:"timeframe"`
	BudgetRange           *string `json:"budgetRange"`
	AdditionalInfo        *string `json:"additionalInfo"`
}

func (p *procedures) registerLearnerApplications(reg *rpc.Registry) {
	reg.Mutation("learnerApplications.submit", rpc.Public, rpc.Bind(p.submitLearner), p.submitOptions("learner_submit")...)

	reg.Query("learnerApplications.getAll", rpc.Admin, rpc.Bind(func(ctx context.Context, in statusFilter) (any, error) {
		return p.store.ListLearnerApplications(ctx, in.Status)
	}), p.schema("status_filter"))

	reg.Query("learnerApplications.getById", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		return p.store.GetLearnerApplication(ctx, in.ID)
	}), p.schema("id"))

	reg.Mutation("learnerApplications.updateStatus", rpc.Admin, rpc.Bind(p.reviewLearner), p.schema("review"))
}

func (p *procedures) submitLearner(ctx context.Context, in learnerSubmitInput) (any, error) {
	a, err := p.store.CreateLearnerApplication(ctx, &models.LearnerApplication{
		FullName:             in.FullName,
		Email:                in.Email,
		Phone:                in.Phone,
		IDNumber:             in.IDNumber,
		DateOfBirth:          in.DateOfBirth,
		Gender:               in.Gender,
		Address:              in.Address,
		City:                 in.City,
		Province:             in.Province,
		PostalCode:           in.PostalCode,
		HighestQualification: in.HighestQualification,
		ProgramInterest:      in.ProgramInterest,
		EmploymentStatus:     in.EmploymentStatus,
		ComputerAccess:       in.ComputerAccess,
		InternetAccess:       in.InternetAccess,
		Motivation:           in.Motivation,
		HearAboutUs:          in.HearAboutUs,
	})
	if err != nil {
		return nil, err
	}

	p.notifier.LearnerSubmitted(ctx, a)
	return success{Success: true, ID: a.ID}, nil
}

func (p *procedures) reviewLearner(ctx context.Context, in reviewInput) (any, error) {
	reviewer := session.IdentityFrom(ctx)
	if err := p.store.UpdateLearnerApplicationStatus(ctx, in.ID, in.Status, reviewer.ID, in.AdminNotes); err != nil {
		return nil, err
	}

	a, err := p.store.GetLearnerApplication(ctx, in.ID)
	if err != nil {
		logger.Warn("reload reviewed learner application", "id", in.ID, "err", err)
	}
	if a != nil {
		p.notifier.LearnerReviewed(ctx, a)
	}
	return success{Success: true}, nil
}

func (p *procedures) registerClientApplications(reg *rpc.Registry) {
	reg.Mutation("clientApplications.submit", rpc.Public, rpc.Bind(p.submitClient), p.submitOptions("client_submit")...)

	reg.Query("clientApplications.getAll", rpc.Admin, rpc.Bind(func(ctx context.Context, in statusFilter) (any, error) {
		return p.store.ListClientApplications(ctx, in.Status)
	}), p.schema("status_filter"))

	reg.Query("clientApplications.getById", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		return p.store.GetClientApplication(ctx, in.ID)
	}), p.schema("id"))

	reg.Mutation("clientApplications.updateStatus", rpc.Admin, rpc.Bind(p.reviewClient), p.schema("review"))
}

func (p *procedures) submitClient(ctx context.Context, in clientSubmitInput) (any, error) {
	a, err := p.store.CreateClientApplication(ctx, &models.ClientApplication{
		CompanyName:           in.CompanyName,
		RegistrationNumber:    in.RegistrationNumber,
		Industry:              in.Industry,
		ContactPerson:         in.ContactPerson,
		JobTitle:              in.JobTitle,
		Email:                 in.Email,
		Phone:                 in.Phone,
		CompanyAddress:        in.CompanyAddress,
		City:                  in.City,
		Province:              in.Province,
		PostalCode:            in.PostalCode,
		NumberOfEmployees:     in.NumberOfEmployees,
		TrainingNeeds:         in.TrainingNeeds,
		ServiceInterest:       in.ServiceInterest,
		PreferredTrainingMode: in.PreferredTrainingMode,
		EstimatedLearners:     in.EstimatedLearners,
		Timeframe:             in.Timeframe,
		BudgetRange:           in.BudgetRange,
		AdditionalInfo:        in.AdditionalInfo,
	})
	if err != nil {
		return nil, err
	}

	p.notifier.ClientSubmitted(ctx, a)
	return success{Success: true, ID: a.ID}, nil
}

func (p *procedures) reviewClient(ctx context.Context, in reviewInput) (any, error) {
	reviewer := session.IdentityFrom(ctx)
	if err := p.store.UpdateClientApplicationStatus(ctx, in.ID, in.Status, reviewer.ID, in.AdminNotes); err != nil {
		return nil, err
	}

	a, err := p.store.GetClientApplication(ctx, in.ID)
	if err != nil {
		logger.Warn("reload reviewed client application", "id", in.ID, "err", err)
	}
	if a != nil && a.Email != "" {
		p.notifier.ClientReviewed(ctx, a)
	}
	return success{Success: true}, nil
}
