package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

type invoiceRepository struct {
	base
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.with(ctx, func(st *state) error {
		invoice.ID = st.next("invoices")
		if invoice.Version == 0 {
			invoice.Version = 1
		}
		now := r.now()
		invoice.CreatedAt, invoice.UpdatedAt = now, now
		st.invoices[invoice.ID] = *invoice
		return nil
	})
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var out *models.Invoice
	err := r.with(ctx, func(st *state) error {
		invoice, ok := st.invoices[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &invoice
		return nil
	})
	return out, err
}

// FindByIDForUpdate is FindByID; the store lock already serializes transactions.
func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *invoiceRepository) UpdateBalance(ctx context.Context, invoice *models.Invoice) error {
	return r.with(ctx, func(st *state) error {
		stored, ok := st.invoices[invoice.ID]
		if !ok || stored.Version != invoice.Version {
			return repository.ErrStaleVersion
		}
		stored.OutstandingAmount = invoice.OutstandingAmount
		stored.Status = invoice.Status
		stored.Version++
		stored.UpdatedAt = r.now()
		st.invoices[invoice.ID] = stored
		invoice.Version = stored.Version
		invoice.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *invoiceRepository) List(ctx context.Context, query *repository.ListQuery) ([]models.Invoice, int64, error) {
	var out []models.Invoice
	var total int64
	err := r.with(ctx, func(st *state) error {
		houseID := query.Filters["house_id"]
		status := query.Filters["status"]
		rows := make([]models.Invoice, 0, len(st.invoices))
		for _, invoice := range st.invoices {
			if houseID != "" && strconv.FormatUint(uint64(invoice.HouseID), 10) != houseID {
				continue
			}
			if status != "" && invoice.Status != status {
				continue
			}
			rows = append(rows, invoice)
		}
		out, total = list(rows, query,
			func(i models.Invoice) time.Time { return i.DueDate },
			func(i models.Invoice) uint { return i.ID })
		return nil
	})
	return out, total, err
}

func (r *invoiceRepository) FindIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.with(ctx, func(st *state) error {
		for id := range st.invoices {
			ids = append(ids, id)
		}
		ids = sortByID(ids, func(id uint) uint { return id })
		return nil
	})
	return ids, err
}

func (r *invoiceRepository) FindPastDue(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	var out []models.Invoice
	err := r.with(ctx, func(st *state) error {
		for _, invoice := range st.invoices {
			if invoice.Status == models.InvoiceStatusIssued &&
				invoice.DueDate.Before(day) &&
				invoice.OutstandingAmount.Equal(invoice.TotalAmount) {
				out = append(out, invoice)
			}
		}
		out = sortByID(out, func(i models.Invoice) uint { return i.ID })
		return nil
	})
	return out, err
}

func (r *invoiceRepository) FindLatestRecurringByHouse(ctx context.Context, houseID uint) (*models.Invoice, error) {
	var out *models.Invoice
	err := r.with(ctx, func(st *state) error {
		for _, invoice := range st.invoices {
			if invoice.HouseID != houseID || invoice.IsManual {
				continue
			}
			if out == nil || invoice.DueDate.After(out.DueDate) ||
				(invoice.DueDate.Equal(out.DueDate) && invoice.ID > out.ID) {
				found := invoice
				out = &found
			}
		}
		if out == nil {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepository) SumOutstandingByHouse(ctx context.Context, houseID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.with(ctx, func(st *state) error {
		for _, invoice := range st.invoices {
			if invoice.HouseID == houseID {
				total = total.Add(invoice.OutstandingAmount)
			}
		}
		return nil
	})
	return total, err
}

type invoiceEventRepository struct {
	base
}

func (r *invoiceEventRepository) Create(ctx context.Context, event *models.InvoiceEvent) error {
	return r.with(ctx, func(st *state) error {
		event.ID = st.next("invoice_events")
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.now()
		}
		st.events[event.ID] = *event
		return nil
	})
}

func (r *invoiceEventRepository) FindByInvoiceID(ctx context.Context, invoiceID uint) ([]models.InvoiceEvent, error) {
	var out []models.InvoiceEvent
	err := r.with(ctx, func(st *state) error {
		for _, event := range st.events {
			if event.InvoiceID == invoiceID {
				out = append(out, event)
			}
		}
		out = sortByID(out, func(e models.InvoiceEvent) uint { return e.ID })
		return nil
	})
	return out, err
}
