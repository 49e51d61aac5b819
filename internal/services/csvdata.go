package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thecawe/cellar/internal/models"
)

// csvHeader is the fixed column set for cellar export and import.
var csvHeader = []string{"Name", "Producer", "Vintage", "Type", "Region", "Country", "Quantity", "Price"}

// ExportCSV writes the caller's whole cellar (including quantity-0
// history rows) as CSV.
func (s *CellarService) ExportCSV(userID uint) ([]byte, error) {
	items, err := s.ListAll(userID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, item := range items {
		rec := []string{
			item.Wine.Name,
			item.Wine.Producer,
			strconv.Itoa(item.Wine.Vintage),
			item.Wine.Type,
			item.Wine.Region,
			item.Wine.Country,
			strconv.Itoa(item.Quantity),
			strconv.FormatFloat(item.BuyPrice, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ImportReport summarizes an import run.
type ImportReport struct {
	Imported int
	Skipped  int
	Errors   []string
}

// ImportCSV parses the export column set and adds the rows to the
// caller's cellar through the catalog resolver. Additive only: rows
// matching existing items are inserted again, not merged.
func (s *CellarService) ImportCSV(userID uint, r io.Reader) (ImportReport, error) {
	rep := ImportReport{}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return rep, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "producer", "vintage"} {
		if _, ok := col[required]; !ok {
			return rep, fmt.Errorf("missing column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		name := field(rec, "name")
		producer := field(rec, "producer")
		vintage, vErr := strconv.Atoi(field(rec, "vintage"))
		if name == "" || producer == "" || vErr != nil || vintage < 1900 || vintage > 2100 {
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: invalid name/producer/vintage", line))
			continue
		}
		wineType := strings.ToUpper(field(rec, "type"))
		if !models.ValidWineType(wineType) {
			wineType = models.WineOther
		}
		quantity, qErr := strconv.Atoi(field(rec, "quantity"))
		if qErr != nil || quantity < 1 {
			quantity = 1
		}
		price, _ := strconv.ParseFloat(field(rec, "price"), 64)
		if price < 0 {
			price = 0
		}
		_, err = s.Add(userID, AddInput{
			Name:     name,
			Producer: producer,
			Vintage:  vintage,
			Type:     wineType,
			Region:   field(rec, "region"),
			Country:  field(rec, "country"),
			Quantity: quantity,
			BuyPrice: price,
			// Imported bottles stay private until toggled.
			IsVisible: false,
		})
		if err != nil {
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		rep.Imported++
	}
	return rep, nil
}
