package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf"
	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf/pdftest"
	"github.com/custodia-labs/countersign/internal/core/domain"
)

const sequentialRecipients = `
recipients:
  - id: r1
    name: Ann Buyer
    email: ann@example.com
    rank: 1
  - id: r2
    name: Bob Seller
    email: bob@example.com
    rank: 2
  - id: r3
    name: Cy Witness
    email: cy@example.com
    rank: 3
`

const leaseFields = `
fields:
  - id: buyer-sig
    recipient: r1
    type: signature
    page: 1
    x: 72
    y: 650
    value: Ann Buyer
  - id: seller-sig
    recipient: r2
    type: signature
    page: 2
    x: 72
    y: 650
    value: Bob Seller
  - id: seller-date
    recipient: r2
    type: date_signed
    page: 2
    x: 300
    y: 650
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOrder_Sequential(t *testing.T) {
	recipients := writeFile(t, "recipients.yaml", []byte(sequentialRecipients))

	out, err := execute(t, "order", "--recipients", recipients, "--signed", "r1")
	require.NoError(t, err)

	var report orderReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.SigningModeSequential, report.Mode)
	assert.Equal(t, domain.PhaseSequentialPending, report.Phase)
	assert.Equal(t, 2, report.ActiveRank)
	assert.Equal(t, []string{"r1"}, report.Signed)
	assert.Equal(t, []string{"r2"}, report.CanAct)
}

func TestOrder_OutOfTurn(t *testing.T) {
	recipients := writeFile(t, "recipients.yaml", []byte(sequentialRecipients))

	_, err := execute(t, "order", "--recipients", recipients, "--signed", "r1,r3")
	assert.True(t, errors.Is(err, domain.ErrOutOfTurn), "got %v", err)
}

func TestOrder_Complete(t *testing.T) {
	recipients := writeFile(t, "recipients.yaml", []byte(sequentialRecipients))

	out, err := execute(t, "order", "-r", recipients, "-s", "r1", "-s", "r2", "-s", "r3")
	require.NoError(t, err)

	var report orderReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, domain.PhaseComplete, report.Phase)
	assert.Empty(t, report.CanAct)
}

func TestResolveOrder_Unordered(t *testing.T) {
	recipients := []*domain.Recipient{
		{ID: "a", Name: "A", Email: "a@example.com"},
		{ID: "b", Name: "B", Email: "b@example.com"},
		{ID: "c", Name: "C", Email: "c@example.com"},
	}

	report, err := resolveOrder(recipients, nil, []string{"b"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SigningModeUnordered, report.Mode)
	assert.Equal(t, domain.PhaseUnordered, report.Phase)
	assert.Equal(t, []string{"a", "c"}, report.CanAct)
}

func TestResolveOrder_ObserversSkipped(t *testing.T) {
	recipients := []*domain.Recipient{
		{ID: "r1", Name: "A", Email: "a@example.com", Rank: domain.IntPtr(1)},
		{ID: "r2", Name: "B", Email: "b@example.com", Rank: domain.IntPtr(2)},
	}
	fields := []*domain.Field{
		{ID: "f1", RecipientID: "r2", Type: domain.FieldTypeSignature, Position: domain.Position{Page: 1}},
	}

	report, err := resolveOrder(recipients, fields, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, report.Signed)
	assert.Equal(t, []string{"r2"}, report.CanAct)
}

func TestResolveOrder_Errors(t *testing.T) {
	mixed := []*domain.Recipient{
		{ID: "r1", Name: "A", Email: "a@example.com", Rank: domain.IntPtr(1)},
		{ID: "r2", Name: "B", Email: "b@example.com"},
	}
	_, err := resolveOrder(mixed, nil, nil, true)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	single := []*domain.Recipient{{ID: "r1", Name: "A", Email: "a@example.com"}}
	_, err = resolveOrder(single, nil, []string{"stranger"}, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedRecipient)
}

func TestCompose(t *testing.T) {
	base := pdftest.Blank(pdftest.Letter, pdftest.Letter)
	pdfPath := writeFile(t, "lease.pdf", base)
	fieldsPath := writeFile(t, "fields.yaml", []byte(leaseFields))
	outPath := filepath.Join(t.TempDir(), "signed.pdf")

	out, err := execute(t, "compose", "--pdf", pdfPath, "--fields", fieldsPath, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+outPath)

	composed, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEqual(t, base, composed)

	pages, err := pdf.NewRenderer().PageSizes(composed)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	unchanged, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, base, unchanged)
}

func TestCompose_PageOutOfRange(t *testing.T) {
	pdfPath := writeFile(t, "lease.pdf", pdftest.Blank(pdftest.Letter))
	fieldsPath := writeFile(t, "fields.yaml", []byte(leaseFields))

	_, err := execute(t, "compose", "--pdf", pdfPath, "--fields", fieldsPath, "--out", filepath.Join(t.TempDir(), "x.pdf"))
	assert.ErrorIs(t, err, domain.ErrPageOutOfRange)
}

func TestCompose_InvalidField(t *testing.T) {
	pdfPath := writeFile(t, "lease.pdf", pdftest.Blank(pdftest.Letter))
	fieldsPath := writeFile(t, "fields.yaml", []byte("fields:\n  - id: f1\n    recipient: r1\n    type: stamp\n    page: 1\n"))

	_, err := execute(t, "compose", "--pdf", pdfPath, "--fields", fieldsPath, "--out", filepath.Join(t.TempDir(), "x.pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompose_MissingFlags(t *testing.T) {
	_, err := execute(t, "compose", "--pdf", "lease.pdf")
	assert.Error(t, err)
}

func TestPages(t *testing.T) {
	pdfPath := writeFile(t, "mixed.pdf", pdftest.Blank(pdftest.Letter, pdftest.A4))

	out, err := execute(t, "pages", "--pdf", pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "1\t612x792\n2\t595x842\n", out)
}
