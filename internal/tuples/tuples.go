package tuples

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"strings"

	"ipinsights-workflow/pkg/models"
)

// Record is one (principal, IP address) pair read from a tuple CSV. Rows map
// 1:1 to prediction requests; duplicates are allowed.
type Record struct {
	Principal string
	IPAddress string
}

// Parse reads header-less CSV rows of the form "principal,ip" in order. Any
// row that is not exactly two non-empty fields with a valid IPv4 address
// fails the whole batch with ErrMalformedData.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []Record
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tuple row %d: %v: %w", row, err, models.ErrMalformedData)
		}

		if len(fields) != 2 {
			return nil, fmt.Errorf("tuple row %d has %d fields, expected 2: %w", row, len(fields), models.ErrMalformedData)
		}

		record := Record{
			Principal: strings.TrimSpace(fields[0]),
			IPAddress: strings.TrimSpace(fields[1]),
		}
		if err := record.validate(); err != nil {
			return nil, fmt.Errorf("tuple row %d: %w", row, err)
		}

		records = append(records, record)
	}

	return records, nil
}

// Serialize writes records as header-less CSV, one row per record, preserving
// input order. The output is the request body the endpoint expects.
func Serialize(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for i, record := range records {
		if err := record.validate(); err != nil {
			return nil, fmt.Errorf("tuple %d: %w", i, err)
		}
		if err := writer.Write([]string{record.Principal, record.IPAddress}); err != nil {
			return nil, fmt.Errorf("serializing tuple %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("serializing tuples: %w", err)
	}

	return buf.Bytes(), nil
}

func (r Record) validate() error {
	if r.Principal == "" {
		return fmt.Errorf("principal is empty: %w", models.ErrMalformedData)
	}
	if r.IPAddress == "" {
		return fmt.Errorf("ip address is empty: %w", models.ErrMalformedData)
	}
	if ip := net.ParseIP(r.IPAddress); ip == nil || ip.To4() == nil {
		return fmt.Errorf("'%s' is not a valid IPv4 address: %w", r.IPAddress, models.ErrMalformedData)
	}
	return nil
}

// FromAPI converts the API representation to records.
func FromAPI(in []models.Tuple) []Record {
	records := make([]Record, len(in))
	for i, t := range in {
		records[i] = Record{Principal: t.Principal, IPAddress: t.IPAddress}
	}
	return records
}
