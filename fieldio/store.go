// Package fieldio persists cell fields as NetCDF classic files laid out in
// time directories, <root>/<time>/<field>.nc, and reads restart state back.
package fieldio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/unit"
	"github.com/notargets/mpturb/field"
	"github.com/sirupsen/logrus"
)

const (
	cellDim = "cell"
	cmptDim = "cmpt"
	ext     = ".nc"
)

// The order SI exponents are stored in the "dimensions" attribute
var dimOrder = []unit.Dimension{
	unit.MassDim, unit.LengthDim, unit.TimeDim, unit.TemperatureDim,
	unit.CurrentDim, unit.LuminousIntensityDim, unit.AngleDim,
}

type Store struct {
	Root string
	Log  logrus.FieldLogger
}

func NewStore(root string) *Store {
	return &Store{Root: root, Log: logrus.StandardLogger()}
}

func (s *Store) path(timeName, name string) string {
	return filepath.Join(s.Root, timeName, name+ext)
}

func encodeDims(d unit.Dimensions) (exps []int32) {
	exps = make([]int32, len(dimOrder))
	for i, dim := range dimOrder {
		exps[i] = int32(d[dim])
	}
	return
}

func unitsLabel(d unit.Dimensions) string {
	if label := d.String(); label != "" {
		return label
	}
	return "1"
}

func decodeDims(exps []int32) (d unit.Dimensions) {
	d = make(unit.Dimensions)
	for i, e := range exps {
		if i < len(dimOrder) && e != 0 {
			d[dimOrder[i]] = int(e)
		}
	}
	return
}

// Write persists f at timeName. Fields written with restart false are
// derived output and are never read back at startup.
func (s *Store) Write(timeName string, f field.Field, restart bool) (err error) {
	var (
		hdr   = f.FieldHeader()
		ncmpt = f.Components()
		data  = f.Values()
		n     = len(data) / ncmpt
		dims  = []string{cellDim}
	)
	if err = os.MkdirAll(filepath.Join(s.Root, timeName), 0755); err != nil {
		return fmt.Errorf("creating time directory %s: %w", timeName, err)
	}
	h := cdf.NewHeader([]string{cellDim, cmptDim}, []int{n, ncmpt})
	if ncmpt > 1 {
		dims = append(dims, cmptDim)
	}
	h.AddVariable(hdr.Name, dims, []float64{0})
	h.AddAttribute(hdr.Name, "dimensions", encodeDims(hdr.Dims))
	h.AddAttribute(hdr.Name, "units", unitsLabel(hdr.Dims))
	h.AddAttribute(hdr.Name, "restart", strconv.FormatBool(restart))
	h.AddAttribute("", "time", timeName)
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("defining netcdf header for %s: %w", hdr.Name, err)
	}

	ff, err := os.Create(s.path(timeName, hdr.Name))
	if err != nil {
		return fmt.Errorf("creating netcdf file for %s: %w", hdr.Name, err)
	}
	defer func() {
		if cerr := ff.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	cf, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("creating netcdf file for %s: %w", hdr.Name, err)
	}
	// A complete write of a fixed-size variable ends at the variable's last
	// byte and reports io.EOF
	w := cf.Writer(hdr.Name, nil, nil)
	if _, err = w.Write(data); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("writing %s: %w", hdr.Name, err)
	}
	if err = cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("finalizing netcdf file for %s: %w", hdr.Name, err)
	}
	s.Log.WithFields(logrus.Fields{
		"time":    timeName,
		"field":   hdr.Name,
		"restart": restart,
	}).Debug("wrote field")
	return nil
}

// ReadScalar reads a scalar field written at timeName. found is false, with
// no error, when the file does not exist.
func (s *Store) ReadScalar(timeName, name string, nCells int) (sf *field.Scalar, found bool, err error) {
	ff, err := os.Open(s.path(timeName, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", name, err)
	}
	defer ff.Close()
	cf, err := cdf.Open(ff)
	if err != nil {
		return nil, true, fmt.Errorf("reading netcdf header of %s: %w", name, err)
	}
	lengths := cf.Header.Lengths(name)
	if len(lengths) != 1 {
		return nil, true, fmt.Errorf("%s at %s is not a scalar field", name, timeName)
	}
	if lengths[0] != nCells {
		return nil, true, fmt.Errorf("%s at %s has %d cells, want %d", name, timeName, lengths[0], nCells)
	}
	r := cf.Reader(name, nil, nil)
	buf := r.Zero(nCells)
	if _, err = r.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return nil, true, fmt.Errorf("reading %s: %w", name, err)
	}
	data, ok := buf.([]float64)
	if !ok {
		return nil, true, fmt.Errorf("%s at %s is not double precision", name, timeName)
	}
	exps, _ := cf.Header.GetAttribute(name, "dimensions").([]int32)
	sf = field.NewScalarFrom(name, data, decodeDims(exps))
	return sf, true, nil
}

// Fields lists the field names written at timeName, sorted
func (s *Store) Fields(timeName string) (names []string, err error) {
	entries, err := os.ReadDir(filepath.Join(s.Root, timeName))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return
}

// IsRestart reports the restart tag a field was written with
func (s *Store) IsRestart(timeName, name string) (restart bool, err error) {
	ff, err := os.Open(s.path(timeName, name))
	if err != nil {
		return
	}
	defer ff.Close()
	cf, err := cdf.Open(ff)
	if err != nil {
		return
	}
	tag, _ := cf.Header.GetAttribute(name, "restart").(string)
	return strconv.ParseBool(tag)
}

// LatestTime returns the largest numeric time directory under Root
func (s *Store) LatestTime() (timeName string, found bool, err error) {
	entries, err := os.ReadDir(s.Root)
	if os.IsNotExist(err) {
		return "", false, nil
	} else if err != nil {
		return
	}
	latest := -1.
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		t, perr := strconv.ParseFloat(e.Name(), 64)
		if perr != nil || t < latest {
			continue
		}
		latest, timeName, found = t, e.Name(), true
	}
	return
}
