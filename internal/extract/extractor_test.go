package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-sync/internal/classify"
)

const testCLABE = "012180001198203451" // bbva_mx_mxn

const headerBlock = `BBVA MEXICO
Estado de Cuenta
MAESTRA PYME BBVA
No. de Cuenta 0119820345
CLABE ` + testCLABE + `
Periodo DEL 01/01/2025 AL 31/01/2025
`

const tableHeader = `FECHA OPER FECHA LIQ COD. DESCRIPCIÓN CARGOS ABONOS OPERACIÓN LIQUIDACIÓN`

func newTestExtractor() *Extractor {
	return New(classify.DefaultRules())
}

func TestParsePagesSingleTransaction(t *testing.T) {
	page := headerBlock + tableHeader + `
15/ENE 15/ENE T20 SPEI RECIBIDO BANAMEX 1,500.00 10,000.00 10,000.00
TOTAL IMPORTE CARGOS 0.00 TOTAL MOVIMIENTOS CARGOS 0
TOTAL IMPORTE ABONOS 1,500.00 TOTAL MOVIMIENTOS ABONOS 1
`
	result, err := newTestExtractor().ParsePages([]string{page}, "2501 FMX BBVA MXN.pdf")
	require.NoError(t, err)

	assert.Equal(t, testCLABE, result.CLABE)
	assert.Equal(t, "bbva_mx_mxn", result.AccountKey)
	assert.Equal(t, "DEL 01/01/2025 AL 31/01/2025", result.PeriodText)
	assert.Equal(t, 2025, result.PeriodYear)

	require.Len(t, result.Transactions, 1)
	txn := result.Transactions[0]
	assert.Equal(t, "01/15/2025", txn.OperationDate)
	assert.Equal(t, "01/15/2025", txn.SettlementDate)
	assert.Equal(t, "T20", txn.Code)
	assert.Equal(t, "SPEI RECIBIDO BANAMEX", txn.Description)
	assert.True(t, txn.Debit.IsZero())
	assert.Equal(t, "1500", txn.Credit.String())
	assert.Equal(t, "10000", txn.Balance.String())
	assert.Equal(t, "10000", txn.BalanceSettlement.String())
	assert.Equal(t, "2501 FMX BBVA MXN.pdf", txn.SourceFile)
	assert.Equal(t, 1, txn.SourcePage)

	require.NotNil(t, result.Totals)
	assert.Equal(t, "0", result.Totals.DebitAmount.String())
	assert.Equal(t, 0, result.Totals.DebitCount)
	assert.Equal(t, "1500", result.Totals.CreditAmount.String())
	assert.Equal(t, 1, result.Totals.CreditCount)
}

func TestParsePagesCrossPageContinuation(t *testing.T) {
	page1 := headerBlock + tableHeader + `
20/ENE 20/ENE W42 TRASPASO A TERCEROS BANORTE 2,000.00 8,000.00
REF 0012345 FACTURA A-98`
	page2 := `CONCEPTO PAGO PROVEEDOR ENERO
21/ENE 21/ENE C49 COMISION MEMBRESIA 150.00 7,850.00
TOTAL IMPORTE CARGOS 2,150.00 TOTAL MOVIMIENTOS CARGOS 2
TOTAL IMPORTE ABONOS 0.00 TOTAL MOVIMIENTOS ABONOS 0
`
	result, err := newTestExtractor().ParsePages([]string{page1, page2}, "2501 FMX BBVA MXN.pdf")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	first := result.Transactions[0]
	assert.Equal(t, "W42", first.Code)
	assert.Contains(t, first.Description, "TRASPASO A TERCEROS BANORTE")
	assert.Contains(t, first.Description, "REF 0012345 FACTURA A-98")
	assert.Contains(t, first.Description, "CONCEPTO PAGO PROVEEDOR ENERO")
	assert.Equal(t, 1, first.SourcePage)
	// Outgoing keyword makes this W42 a debit.
	assert.Equal(t, "2000", first.Debit.String())
	assert.True(t, first.Credit.IsZero())

	second := result.Transactions[1]
	assert.Equal(t, "C49", second.Code)
	assert.Equal(t, "01/21/2025", second.OperationDate)
	assert.Equal(t, 2, second.SourcePage)
	assert.Equal(t, "150", second.Debit.String())
}

func TestParsePagesSortsByOperationDate(t *testing.T) {
	page := headerBlock + tableHeader + `
20/ENE 20/ENE C49 COMISION 100.00 9,900.00
05/ENE 06/ENE T20 SPEI RECIBIDO 500.00 10,000.00
`
	result, err := newTestExtractor().ParsePages([]string{page}, "f.pdf")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "01/05/2025", result.Transactions[0].OperationDate)
	assert.Equal(t, "01/20/2025", result.Transactions[1].OperationDate)
}

func TestParsePagesTwoAmountsShareBalance(t *testing.T) {
	page := headerBlock + tableHeader + `
10/ENE 10/ENE T20 SPEI RECIBIDO 750.00 5,250.00
`
	result, err := newTestExtractor().ParsePages([]string{page}, "f.pdf")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	txn := result.Transactions[0]
	assert.Equal(t, "5250", txn.Balance.String())
	assert.Equal(t, "5250", txn.BalanceSettlement.String())
}

func TestParsePagesFooterEndsFile(t *testing.T) {
	page1 := headerBlock + tableHeader + `
10/ENE 10/ENE T20 SPEI RECIBIDO 750.00 5,250.00
Estimado Cliente: BBVA MEXICO, S.A.`
	// Nothing after the footer counts, even a later page.
	page2 := tableHeader + `
11/ENE 11/ENE C49 COMISION 100.00 5,150.00
`
	result, err := newTestExtractor().ParsePages([]string{page1, page2}, "f.pdf")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "T20", result.Transactions[0].Code)
	assert.Nil(t, result.Totals)
}

func TestParsePagesSkipsNoiseLines(t *testing.T) {
	page := headerBlock + tableHeader + `
10/ENE 10/ENE T20 SPEI RECIBIDO 750.00 5,250.00
1/4
PAGINA 2
ENE 2025
Estado de Cuenta
MAESTRA PYME BBVA
`
	result, err := newTestExtractor().ParsePages([]string{page}, "f.pdf")
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "SPEI RECIBIDO", result.Transactions[0].Description)
}

func TestParsePagesLinesBeforeHeaderIgnored(t *testing.T) {
	page := headerBlock + `
10/ENE 10/ENE T20 SPEI RECIBIDO 750.00 5,250.00
` + tableHeader + `
11/ENE 11/ENE C49 COMISION 100.00 5,150.00
`
	result, err := newTestExtractor().ParsePages([]string{page}, "f.pdf")
	require.NoError(t, err)
	// Only the line after the table header is a transaction.
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "C49", result.Transactions[0].Code)
}

func TestParsePagesHeaderErrors(t *testing.T) {
	_, err := newTestExtractor().ParsePages([]string{"Estado de Cuenta sin datos"}, "f.pdf")
	assert.ErrorIs(t, err, ErrNoCLABE)

	// 18-digit number that belongs to no registered account.
	_, err = newTestExtractor().ParsePages([]string{"CLABE 999999999999999999\nPeriodo DEL 01/01/2025 AL 31/01/2025"}, "f.pdf")
	var unknown *UnknownCLABEError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"999999999999999999"}, unknown.Candidates)

	_, err = newTestExtractor().ParsePages([]string{"CLABE " + testCLABE + " sin periodo"}, "f.pdf")
	assert.ErrorIs(t, err, ErrNoPeriod)
}

func TestParsePagesEmptyInput(t *testing.T) {
	_, err := newTestExtractor().ParsePages(nil, "f.pdf")
	assert.True(t, errors.Is(err, ErrNoText))
}

func TestParsePagesStats(t *testing.T) {
	page := headerBlock + tableHeader + `
05/ENE 05/ENE T20 SPEI RECIBIDO 1,000.00 11,000.00
20/ENE 20/ENE C49 COMISION 400.00 10,600.00
`
	result, err := newTestExtractor().ParsePages([]string{page}, "f.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.TotalTransactions)
	assert.Equal(t, "400", result.Stats.TotalDebits.String())
	assert.Equal(t, "1000", result.Stats.TotalCredits.String())
	assert.Equal(t, "600", result.Stats.NetMovement.String())
	assert.Equal(t, "01/05/2025", result.Stats.DateStart)
	assert.Equal(t, "01/20/2025", result.Stats.DateEnd)
}

func TestScrapeSummaryTotalsWindow(t *testing.T) {
	// Totals beyond the scan window are not picked up.
	lines := []string{"Total de Movimientos"}
	for i := 0; i < 12; i++ {
		lines = append(lines, "relleno")
	}
	lines = append(lines, "TOTAL IMPORTE CARGOS 1.00 TOTAL MOVIMIENTOS CARGOS 1")
	assert.Nil(t, scrapeSummaryTotals(lines))
}
