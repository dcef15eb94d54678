// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// FloatT is a JSON payload of {"f64": value}
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a JSON payload of {"int": value}
type IntT struct {
	Int int `json:"int"`
}

// StrT is a JSON payload of {"str": value}
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a JSON payload of {"bool": value}
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a single typed value sent to a client.  T selects
// which of the fields is encoded.
type HumanPayload struct {
	T      types.BasicKind
	Float  float64
	Int    int
	String string
	Bool   bool
}

func (hp HumanPayload) value() (interface{}, error) {
	switch hp.T {
	case types.Float64:
		return FloatT{hp.Float}, nil
	case types.Int:
		return IntT{hp.Int}, nil
	case types.String:
		return StrT{hp.String}, nil
	case types.Bool:
		return BoolT{hp.Bool}, nil
	}
	return nil, fmt.Errorf("payload type %v not supported", hp.T)
}

// EncodeAndRespond encodes the payload to JSON and writes it to w.
// Errors are logged and replied with status 500.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	v, err := hp.value()
	if err != nil {
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	EncodeAndRespond(w, r, v)
}

// EncodeAndRespond writes v to w as JSON
func EncodeAndRespond(w http.ResponseWriter, r *http.Request, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		fstr := fmt.Sprintf("error encoding %T to json %q", v, err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
	w.Write([]byte("\n"))
}

// ReplyWithFile replies to the client request by serving the given file name
func ReplyWithFile(w http.ResponseWriter, r *http.Request, fn string, fldr string) {
	filePath, err := filepath.Abs(filepath.Join(fldr, fn))
	if err != nil {
		fstr := fmt.Sprintf("unable to compute abspath of file %s %s %s", fldr, fn, err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		fstr := fmt.Sprintf("source file missing %s", filePath)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		fstr := fmt.Sprintf("error retrieving source file stats %s", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	http.ServeContent(w, r, filepath.Base(fn), stat.ModTime(), f)
}
