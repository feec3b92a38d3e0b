package mv2

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// record.go - persisted measurement record envelope. Grounded fully on
// original_source/.../CMxrFile.cpp: same root/header/body/dataset structure,
// same fixed attribute values, so existing MXR consumers keep working. The
// document is rewritten in full on every successful run rather than streamed,
// since etree holds the whole tree in memory and spec.md requires this exact
// shape rather than incremental writes.

const (
	mxrRootVer     = "1.0"
	mxrSource      = "MV2 Host Software"
	mxrDescription = "Results from MV2"
	mxrBodyType    = "tMXR_BODY_MV2"
	mxrBodyVer     = "1.0"
	mxrDatasetType = "tMXR_DATASET_MV2_MEASUREMENT"
	mxrDatasetVer  = "1.0"
)

// Record is a persisted MXR-style measurement record. It is rewritten in full
// on every successful run and left untouched on failure, so a partially
// written run never corrupts the file a prior run produced.
type Record struct {
	path     string
	doc      *etree.Document
	headings *etree.Element
	dataset  *etree.Element
}

// NewRecord creates a fresh, empty record envelope in memory (not yet
// written to disk — call Save after each successful run).
func NewRecord(path string) *Record {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("MetrolabXmlRecord")
	root.CreateAttr("ver", mxrRootVer)

	header := root.CreateElement("header")
	header.CreateElement("src").SetText(mxrSource)
	header.CreateElement("datTim8601").SetText(isoTimestamp())
	header.CreateElement("descr").SetText(mxrDescription)

	body := root.CreateElement("body")
	body.CreateAttr("type", mxrBodyType)
	body.CreateAttr("ver", mxrBodyVer)

	dataset := body.CreateElement("dataset")
	dataset.CreateAttr("type", mxrDatasetType)
	dataset.CreateAttr("ver", mxrDatasetVer)

	headings := dataset.CreateElement("headings")

	return &Record{path: path, doc: doc, headings: headings, dataset: dataset}
}

func isoTimestamp() string {
	return time.Now().Format("2006-01-02T15:04:05")
}

// SetHeadings overwrites the dataset's single headings node with a
// comma-separated column name list.
func (r *Record) SetHeadings(names []string) {
	r.headings.SetText(strings.Join(names, ","))
}

// AppendMeasurement adds one <meas> node for a single run: one row per sample
// the run produced, columns comma-separated, rows newline-separated.
func (r *Record) AppendMeasurement(rows [][]uint16) {
	var lines []string
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.FormatUint(uint64(v), 10)
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	meas := r.dataset.CreateElement("meas")
	meas.SetText(strings.Join(lines, "\n"))
}

// Save writes the whole document to disk, indented, matching the original's
// xmlSaveFormatFileEnc(..., "UTF-8", indent=1) call.
func (r *Record) Save() error {
	r.doc.Indent(2)
	if err := r.doc.WriteToFile(r.path); err != nil {
		return wrapErr(ErrIO, "write record "+r.path, err)
	}
	return nil
}
