//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/xuri/excelize/v2"
)

func fetchExport(t *testing.T, id, format string) (*http.Response, []byte) {
	t.Helper()

	path := "/api/checks/" + id + "/export"
	if format != "" {
		path += "?format=" + format
	}

	resp := doGet(t, path)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export body: %v", err)
	}

	return resp, body
}

func TestExportCSV(t *testing.T) {
	id := createCheck(t, createRequest{Mode: "deals", Names: []string{
		"Half-Life",
		`Sid Meier's "Pirates!"`,
		"No Such Game 9000",
	}})
	waitForTerminal(t, id)

	resp, body := fetchExport(t, id, "csv")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type: got %q", ct)
	}
	wantDisposition := fmt.Sprintf(`attachment; filename="deals-check-%s.csv"`, id)
	if cd := resp.Header.Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("content disposition: got %q, want %q", cd, wantDisposition)
	}

	// Every field is quoted, embedded quotes are doubled, and missing
	// values render as N/A.
	want := `"Game Name","Price","Currency","Status"` + "\n" +
		`"Half-Life","7.49","EUR","found"` + "\n" +
		`"Sid Meier's ""Pirates!""","4.99","EUR","found"` + "\n" +
		`"No Such Game 9000","N/A","N/A","not-found"` + "\n"
	if string(body) != want {
		t.Errorf("csv body:\ngot:\n%s\nwant:\n%s", body, want)
	}
}

func TestExportCSV_DefaultFormat(t *testing.T) {
	id := createCheck(t, createRequest{Mode: "deals", Names: []string{"Portal"}})
	waitForTerminal(t, id)

	resp, _ := fetchExport(t, id, "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type: got %q", ct)
	}
}

func TestExportCSV_Idempotent(t *testing.T) {
	id := createCheck(t, createRequest{Mode: "deals", Names: []string{"Half-Life", "Portal"}})
	waitForTerminal(t, id)

	_, first := fetchExport(t, id, "csv")
	_, second := fetchExport(t, id, "csv")

	if !bytes.Equal(first, second) {
		t.Error("exporting the same finished run twice produced different bytes")
	}
}

func TestExportCSV_Wishlist(t *testing.T) {
	id := createCheck(t, createRequest{
		Mode:         "wishlist",
		Names:        []string{"Half-Life", "Counter-Strike", "Portal"},
		WishlistUser: "stub-collector",
	})
	waitForTerminal(t, id)

	resp, body := fetchExport(t, id, "csv")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	want := `"Game Name","Price","Currency","Status","Date Added","Priority"` + "\n" +
		`"Half-Life","N/A","N/A","found","2022-11-15","1"` + "\n" +
		`"Counter-Strike","N/A","N/A","found","2023-11-14","12"` + "\n" +
		`"Portal","N/A","N/A","not-found","N/A","N/A"` + "\n"
	if string(body) != want {
		t.Errorf("csv body:\ngot:\n%s\nwant:\n%s", body, want)
	}
}

func TestExportXLSX(t *testing.T) {
	id := createCheck(t, createRequest{Mode: "deals", Names: []string{
		"Half-Life",
		"No Such Game 9000",
	}})
	waitForTerminal(t, id)

	resp, body := fetchExport(t, id, "xlsx")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type: got %q", ct)
	}
	wantDisposition := fmt.Sprintf(`attachment; filename="deals-check-%s.xlsx"`, id)
	if cd := resp.Header.Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("content disposition: got %q, want %q", cd, wantDisposition)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("Results")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}

	wantRows := [][]string{
		{"Game Name", "Price", "Currency", "Status"},
		{"Half-Life", "7.49", "EUR", "found"},
		{"No Such Game 9000", "N/A", "N/A", "not-found"},
	}
	for i, want := range wantRows {
		if len(rows[i]) != len(want) {
			t.Fatalf("row %d: got %v, want %v", i, rows[i], want)
		}
		for j, cell := range want {
			if rows[i][j] != cell {
				t.Errorf("cell %d/%d: got %q, want %q", i, j, rows[i][j], cell)
			}
		}
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	id := createCheck(t, createRequest{Mode: "deals", Names: []string{"Portal"}})
	waitForTerminal(t, id)

	resp, _ := fetchExport(t, id, "pdf")

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestExport_RunNotFound(t *testing.T) {
	resp, _ := fetchExport(t, "00000000-0000-0000-0000-000000000000", "csv")

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
