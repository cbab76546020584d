package dashboard

import (
	"context"
	"time"

	"vida-melhor/internal/domain/catalog"
	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/domain/viewer"

	"golang.org/x/sync/errgroup"
)

// Home es la pantalla inicial: medicamentos + farmacias, cada parte con su propio error.
type Home struct {
	Medicines    []medicines.Medicine
	MedicinesErr error

	Pharmacies    []catalog.Pharmacy
	PharmaciesErr error

	Reminder medicines.Reminder

	GeneratedAt time.Time
}

type Service struct {
	meds      *medicines.Service
	reminders *medicines.Reminders
	catalog   *catalog.Service
	now       func() time.Time
}

func NewService(meds *medicines.Service, reminders *medicines.Reminders, cat *catalog.Service) *Service {
	return &Service{
		meds:      meds,
		reminders: reminders,
		catalog:   cat,
		now:       time.Now,
	}
}

// Load pide las dos partes en paralelo. Un fallo en una no bloquea la otra.
func (s *Service) Load(ctx context.Context, v viewer.Viewer) Home {
	var (
		home Home
		g    errgroup.Group
	)

	g.Go(func() error {
		home.Medicines, home.MedicinesErr = s.meds.ListForViewer(ctx, v)
		if home.MedicinesErr == nil && s.reminders != nil {
			rem, err := s.reminders.Current(ctx, v)
			if err == nil {
				home.Reminder = rem
			}
		}
		return nil
	})
	g.Go(func() error {
		home.Pharmacies, home.PharmaciesErr = s.catalog.ListPharmacies(ctx, "")
		return nil
	})
	_ = g.Wait()

	if home.Reminder.State == "" {
		home.Reminder.State = medicines.StateIdle
	}
	home.GeneratedAt = s.now()
	return home
}
