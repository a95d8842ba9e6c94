package gsheets

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type mockAppendService struct {
	spreadsheetID string
	rangeName     string
	values        []any
	err           error
}

func (m *mockAppendService) Append(ctx context.Context, spreadsheetID, rangeName string, values []any) error {
	m.spreadsheetID = spreadsheetID
	m.rangeName = rangeName
	m.values = values
	return m.err
}

func TestAppendRow(t *testing.T) {
	mock := &mockAppendService{}
	c := &Client{append: mock, spreadsheetID: "sheet-1", rangeName: DefaultRange}

	row := []string{"Maria Gomez", "20/12/2030", "10:00 AM", "20/12/2030 09:00:00", "Consulta general", "50.00", "Clinica X", "J-12345678-9", "Efectivo", "evt-123"}
	if err := c.AppendRow(context.Background(), row); err != nil {
		t.Fatalf("AppendRow returned error: %v", err)
	}
	if mock.spreadsheetID != "sheet-1" {
		t.Errorf("expected spreadsheet sheet-1, got %q", mock.spreadsheetID)
	}
	if mock.rangeName != DefaultRange {
		t.Errorf("expected range %q, got %q", DefaultRange, mock.rangeName)
	}
	if len(mock.values) != len(row) {
		t.Fatalf("expected %d columns, got %d", len(row), len(mock.values))
	}
	if mock.values[0] != "Maria Gomez" || mock.values[9] != "evt-123" {
		t.Errorf("unexpected row values: %v", mock.values)
	}
}

func TestAppendRowWrapsError(t *testing.T) {
	mock := &mockAppendService{err: fmt.Errorf("permission denied")}
	c := &Client{append: mock, spreadsheetID: "sheet-1", rangeName: DefaultRange}

	err := c.AppendRow(context.Background(), []string{"a"})
	var serr *SheetError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SheetError, got %v", err)
	}
}
