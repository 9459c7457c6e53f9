package models

import (
	"encoding/json"
	"fmt"
)

// DetailKind discriminates the event detail variants
type DetailKind string

const (
	KindTransport    DetailKind = "transport"
	KindStorage      DetailKind = "storage"
	KindQuality      DetailKind = "quality"
	KindDiagnostic   DetailKind = "diagnostic"
	KindVerification DetailKind = "verification"
	KindCertificate  DetailKind = "certificate"
	KindIoT          DetailKind = "iot"
)

// Detail is the type-specific part of a traceability event
type Detail interface {
	Kind() DetailKind
}

// TransportDetail describes a leg of physical movement
type TransportDetail struct {
	Mode                string `json:"transport_mode,omitempty"`
	VehicleRegistration string `json:"vehicle_registration,omitempty"`
	DriverName          string `json:"driver_name,omitempty"`
	DriverPhone         string `json:"driver_phone,omitempty"`
	Origin              string `json:"origin,omitempty"`
	Destination         string `json:"destination,omitempty"`
}

func (TransportDetail) Kind() DetailKind { return KindTransport }

// StorageDetail describes where and how a batch is kept
type StorageDetail struct {
	Facility     string   `json:"storage_facility,omitempty"`
	Conditions   string   `json:"storage_conditions,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty"`
}

func (StorageDetail) Kind() DetailKind { return KindStorage }

// QualityDetail carries grade and quantity facts
type QualityDetail struct {
	Grade    string   `json:"quality_grade,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Passed   *bool    `json:"passed,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

func (QualityDetail) Kind() DetailKind { return KindQuality }

// DiagnosticDetail references an AI crop diagnostic
type DiagnosticDetail struct {
	DiagnosticID string  `json:"diagnostic_id"`
	Diagnosis    string  `json:"diagnosis,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
}

func (DiagnosticDetail) Kind() DetailKind { return KindDiagnostic }

// VerificationDetail records a field verification visit
type VerificationDetail struct {
	Verifier string `json:"verifier,omitempty"`
	Outcome  string `json:"outcome"`
	Notes    string `json:"notes,omitempty"`
}

func (VerificationDetail) Kind() DetailKind { return KindVerification }

// CertificateDetail references the minted chain-of-custody certificate
type CertificateDetail struct {
	TransactionHash string `json:"transaction_hash"`
	MetadataURL     string `json:"metadata_url,omitempty"`
	ExplorerURL     string `json:"explorer_url,omitempty"`
}

func (CertificateDetail) Kind() DetailKind { return KindCertificate }

// IoTDetail holds sensor readings captured with an event
type IoTDetail struct {
	Readings map[string]float64 `json:"iot_readings"`
}

func (IoTDetail) Kind() DetailKind { return KindIoT }

// DecodeDetail decodes raw JSON into the variant named by kind
func DecodeDetail(kind DetailKind, raw []byte) (Detail, error) {
	var (
		d   Detail
		err error
	)
	switch kind {
	case KindTransport:
		var v TransportDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindStorage:
		var v StorageDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindQuality:
		var v QualityDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindDiagnostic:
		var v DiagnosticDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindVerification:
		var v VerificationDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindCertificate:
		var v CertificateDetail
		err = json.Unmarshal(raw, &v)
		d = v
	case KindIoT:
		var v IoTDetail
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("unknown detail kind '%s'", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s details: %w", kind, err)
	}
	return d, nil
}
