package service_test

import (
	"bytes"
	"testing"

	"dropoutpredictor/internal/model"
	"dropoutpredictor/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportCSVAndDataURI(t *testing.T) {
	header := []string{"Gender", "Residence", "Status"}
	rows := []model.Record{
		{"MALE", "Flat, shared", "STUDYING"},
		{"FEMALE", "House", "DROPPED OUT"},
	}

	data, err := service.ExportCSV(header, rows)
	require.NoError(t, err)
	assert.Equal(t, "Gender,Residence,Status\nMALE,\"Flat, shared\",STUDYING\nFEMALE,House,DROPPED OUT\n", string(data))

	uri := service.DataURI(data)
	decoded, err := service.DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = service.DecodeDataURI("https://example.com/predictions.csv")
	assert.Error(t, err)
}

func TestParseExportEmpty(t *testing.T) {
	_, _, err := service.ParseExport(nil)
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	header := []string{"Gender", "DistanceToSchool", "Prediction", "Status"}
	rows := []model.Record{
		{"MALE", "5", "0", "STUDYING"},
		{"FEMALE", "", "1", "DROPPED OUT"},
	}

	data, err := service.ExportXLSX(header, rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Predictions"}, f.GetSheetList())
	got, err := f.GetRows("Predictions")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Gender", "DistanceToSchool", "Prediction", "Status"},
		{"MALE", "5", "0", "STUDYING"},
		{"FEMALE", "", "1", "DROPPED OUT"},
	}, got)
}
