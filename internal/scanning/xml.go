package scanning

import (
	"encoding/json"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/logging"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/ports"
)

const (
	resultFilePerm = 0600
	formatVersion  = "1"
)

// resultXML is the root element of an XML result file. Maps do not
// marshal to XML, so the availability record travels separately.
type resultXML struct {
	XMLName      xml.Name            `xml:"recon"`
	Version      string              `xml:"version,attr"`
	Assessment   *model.MergedResult `xml:"assessment"`
	Availability availabilityXML     `xml:"availability"`
}

type availabilityXML struct {
	IsAvailable    bool                `xml:"available,attr"`
	ResponseTimeMs *float64            `xml:"response_time_ms,attr,omitempty"`
	HostHint       string              `xml:"host_hint,omitempty"`
	Partial        bool                `xml:"partial,attr,omitempty"`
	Methods        []model.ProbeMethod `xml:"methods>method"`
	Findings       []findingXML        `xml:"firewall>finding"`
}

type findingXML struct {
	Technique string              `xml:"technique,attr"`
	Verdict   model.FilterVerdict `xml:"verdict,attr"`
}

// SaveResults writes result to filePath. A .json extension selects JSON,
// anything else XML.
func SaveResults(result *model.MergedResult, filePath string) error {
	if result == nil {
		return recerrors.NewScanError(recerrors.CodeValidation, "cannot save nil result")
	}
	if err := validateFilePath(filePath); err != nil {
		return recerrors.WrapScanError(recerrors.CodeValidation, "invalid result path", err).WithOperation("validate path")
	}

	var (
		data []byte
		err  error
	)
	if isJSONPath(filePath) {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = marshalXML(result)
	}
	if err != nil {
		return recerrors.WrapScanError(recerrors.CodeParseFailed, "failed to encode result", err).WithOperation("encode")
	}

	if err := os.WriteFile(filePath, data, resultFilePerm); err != nil {
		return fileError("failed to write result file", filePath, err).WithOperation("write file")
	}
	logging.Debug("result saved", "path", filePath, "assessment_id", result.ID)
	return nil
}

// WriteXML encodes result in the result file XML format.
func WriteXML(w io.Writer, result *model.MergedResult) error {
	if result == nil {
		return recerrors.NewScanError(recerrors.CodeValidation, "cannot encode nil result")
	}
	data, err := marshalXML(result)
	if err != nil {
		return recerrors.WrapScanError(recerrors.CodeParseFailed, "failed to encode result", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// LoadResults reads a result file written by SaveResults.
func LoadResults(filePath string) (*model.MergedResult, error) {
	if err := validateFilePath(filePath); err != nil {
		return nil, recerrors.WrapScanError(recerrors.CodeValidation, "invalid result path", err).WithOperation("validate path")
	}

	data, err := os.ReadFile(filePath) //nolint:gosec // path is validated by validateFilePath
	if err != nil {
		return nil, fileError("failed to read result file", filePath, err).WithOperation("open file")
	}

	var result *model.MergedResult
	if isJSONPath(filePath) {
		result = &model.MergedResult{}
		err = json.Unmarshal(data, result)
	} else {
		result, err = unmarshalXML(data)
	}
	if err != nil {
		return nil, recerrors.WrapScanError(recerrors.CodeParseFailed, "failed to decode result file", err).WithOperation("decode")
	}

	if list, err := ports.Parse(result.Target.PortSpec); err == nil {
		result.Target.Ports = list
	}
	return result, nil
}

func marshalXML(result *model.MergedResult) ([]byte, error) {
	avail := result.Availability
	doc := resultXML{
		Version:    formatVersion,
		Assessment: result,
		Availability: availabilityXML{
			IsAvailable:    avail.IsAvailable,
			ResponseTimeMs: avail.ResponseTimeMs,
			HostHint:       avail.HostHint,
			Partial:        avail.Partial,
			Methods:        avail.MethodsUsed,
		},
	}
	for _, name := range model.FindingNames(result.FirewallFindings) {
		doc.Availability.Findings = append(doc.Availability.Findings,
			findingXML{Technique: name, Verdict: result.FirewallFindings[name]})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func unmarshalXML(data []byte) (*model.MergedResult, error) {
	var doc resultXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Assessment == nil {
		return nil, fmt.Errorf("missing assessment element")
	}

	result := doc.Assessment
	findings := make(map[string]model.FilterVerdict, len(doc.Availability.Findings))
	for _, f := range doc.Availability.Findings {
		findings[f.Technique] = f.Verdict
	}
	methods := doc.Availability.Methods
	if methods == nil {
		methods = []model.ProbeMethod{}
	}

	result.FirewallFindings = findings
	result.Availability = model.AvailabilityRecord{
		Target:           result.Target.Host,
		IsAvailable:      doc.Availability.IsAvailable,
		ResponseTimeMs:   doc.Availability.ResponseTimeMs,
		MethodsUsed:      methods,
		FirewallFindings: findings,
		HostHint:         doc.Availability.HostHint,
		Partial:          doc.Availability.Partial,
		Timestamp:        result.EndTime,
	}
	return result, nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func fileError(msg, path string, err error) *recerrors.ScanError {
	code := recerrors.CodeUnknown
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		code = recerrors.CodeFileNotFound
	case stderrors.Is(err, fs.ErrPermission):
		code = recerrors.CodeFilePermission
	}
	return recerrors.WrapScanError(code, msg, err).WithContext("path", path)
}

// validateFilePath validates that the file path is safe to use.
func validateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "../") || filepath.Base(path) == ".." {
		return fmt.Errorf("path contains directory traversal")
	}
	return nil
}
