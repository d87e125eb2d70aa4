package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const trialBalance = "Código;Cuenta;Debe;Haber\n" +
	"1.1.01;Caja;2500;0\n" +
	"2.1.01;Proveedores;0;1000\n" +
	"3.1.01;Capital social;0;1500\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStatementCmd_File(t *testing.T) {
	input := writeTemp(t, "acme.csv", trialBalance)
	dir := t.TempDir()
	xlsxPath := filepath.Join(dir, "balance.xlsx")
	csvPath := filepath.Join(dir, "statement.csv")
	linesPath := filepath.Join(dir, "lines.csv")

	out, err := execute(t, "statement", "--file", input,
		"--xlsx", xlsxPath, "--csv", csvPath, "--lines-csv", linesPath)
	require.NoError(t, err, out)

	assert.Contains(t, out, "Assets")
	assert.Contains(t, out, "Cash and Banks")
	assert.Contains(t, out, "Balanced: no findings")

	wb, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer wb.Close()
	title, err := wb.GetCellValue(wb.GetSheetList()[0], "A1")
	require.NoError(t, err)
	assert.Equal(t, "acme", title)

	statementCSV, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(statementCSV), "section,category,code,name,amount,display"))

	t.Run("lines round trip", func(t *testing.T) {
		out, err := execute(t, "statement", "--lines", linesPath, "--custom-model")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Capital")
		assert.Contains(t, out, "Balanced: no findings")
	})

	t.Run("check passes", func(t *testing.T) {
		out, err := execute(t, "check", "--lines", linesPath)
		require.NoError(t, err)
		assert.Contains(t, out, "3 lines, grand total 0.00")
	})
}

func TestCheckCmd_Unbalanced(t *testing.T) {
	lines := writeTemp(t, "lines.csv",
		"id,code,name,debit,credit,balance,section,category,is_group,manual_override\n"+
			",1.1.01,Caja,100,0,100,asset,Cash and Banks,false,false\n")

	out, err := execute(t, "check", "--lines", lines)
	assert.ErrorIs(t, err, errUnbalanced)
	assert.Contains(t, out, "does not balance")
}

func TestStatementCmd_Errors(t *testing.T) {
	input := writeTemp(t, "tb.csv", trialBalance)

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"statement"}},
		{"both sources", []string{"statement", "--file", input, "--lines", input}},
		{"missing file", []string{"statement", "--file", filepath.Join(t.TempDir(), "nope.csv")}},
		{"unsupported type", []string{"statement", "--file", writeTemp(t, "tb.docx", "x")}},
		{"no headers", []string{"statement", "--file", writeTemp(t, "tb.csv", "1;2\n3;4\n")}},
		{"bad rules", []string{"statement", "--file", input, "--rules", writeTemp(t, "rules.yaml", "nope: [")}},
		{"empty regulation", []string{"statement", "--file", input, "--regulation", writeTemp(t, "reg.txt", "  ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeCmd(t *testing.T) {
	input := writeTemp(t, "tb.csv", trialBalance)

	out, err := execute(t, "analyze", input)
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "tabular"`)
	assert.Contains(t, out, `"name_index": 1`)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ledgerctl dev"))
}
