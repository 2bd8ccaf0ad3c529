package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var ErrExportUnavailable = errors.New("order export storage is not configured")

const (
	exportSheet       = "Orders"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []interface{}{
	"Order Number", "Created At", "Status", "Customer", "Email",
	"Items", "Subtotal", "Tax", "Shipping", "Discount", "Total",
}

// ExportUploader stores a finished export and returns a download URL for it.
type ExportUploader interface {
	UploadExport(ctx context.Context, name, contentType string, body []byte) (key, url string, err error)
}

type OrderExport struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Orders int    `json:"orders"`
}

// ExportOrders writes every order created in [from, to) to an xlsx workbook and uploads it.
func (s *orderService) ExportOrders(ctx context.Context, from, to time.Time) (*OrderExport, error) {
	if s.uploader == nil {
		return nil, ErrExportUnavailable
	}

	orders, err := s.orderRepo.FindCreatedBetween(from, to)
	if err != nil {
		return nil, persistenceError(err)
	}

	body, err := buildOrderWorkbook(orders)
	if err != nil {
		logger.Error("Failed to build order export", err, nil)
		return nil, err
	}

	name := fmt.Sprintf("orders-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	key, url, err := s.uploader.UploadExport(ctx, name, exportContentType, body)
	if err != nil {
		logger.Error("Failed to upload order export", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}

	logger.Info("Order export uploaded", map[string]interface{}{
		"key":    key,
		"orders": len(orders),
	})
	return &OrderExport{Key: key, URL: url, Orders: len(orders)}, nil
}

func buildOrderWorkbook(orders []model.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, o := range orders {
		itemCount := 0
		for _, item := range o.OrderItems {
			itemCount += item.Quantity
		}
		row := []interface{}{
			o.OrderNumber,
			o.CreatedAt.Format(time.RFC3339),
			string(o.Status),
			o.ShippingName,
			o.ShippingEmail,
			itemCount,
			o.Subtotal.InexactFloat64(),
			o.Tax.InexactFloat64(),
			o.Shipping.InexactFloat64(),
			o.Discount.InexactFloat64(),
			o.Total.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
