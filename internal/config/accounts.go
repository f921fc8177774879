// Package config holds the account registry and runtime settings. Accounts
// are data, not code: each entry names the storage folder, the statement file
// pattern and the database object for one bank account, plus identifiers to
// cross-check extracted statements against.
package config

import "regexp"

// Account describes one synchronized bank account.
type Account struct {
	// Key is the stable registry identifier ("bbva_mx_mxn").
	Key string
	// CLABE is the 18-digit interbank account number printed on page one of
	// every statement. Extraction results are cross-checked against it.
	CLABE string
	// Directory is the storage folder holding this account's statement PDFs.
	Directory string
	// FilePattern matches statement filenames belonging to this account.
	FilePattern *regexp.Regexp
	// Database is the JSON object name for this account's transaction store.
	Database string
	// AccountType is recorded in database metadata.
	AccountType string
	Currency    string
	DisplayName string
	Description string
}

// registry keeps accounts in the order operators expect to see them listed.
var registry = []Account{
	{
		Key:         "bbva_mx_mxn",
		CLABE:       "012180001198203451",
		Directory:   "Estados de Cuenta/BBVA/BBVA MX/BBVA MX MXN",
		FilePattern: regexp.MustCompile(`^\d{4}\s+FMX\s+BBVA\s+MXN.*\.pdf$`),
		Database:    "BBVA_MX_mxn_DB.json",
		AccountType: "BBVA_MX_mxn",
		Currency:    "MXN",
		DisplayName: "BBVA MX MXN",
		Description: "BBVA México - Pesos Mexicanos",
	},
	{
		Key:         "bbva_mx_usd",
		CLABE:       "012180001201205883",
		Directory:   "Estados de Cuenta/BBVA/BBVA MX/BBVA MX USD",
		FilePattern: regexp.MustCompile(`^\d{4}\s+FMX\s+BBVA\s+USD.*\.pdf$`),
		Database:    "BBVA_MX_usd_DB.json",
		AccountType: "BBVA_MX_usd",
		Currency:    "USD",
		DisplayName: "BBVA MX USD",
		Description: "BBVA México - Dólares Americanos",
	},
	{
		Key:         "bbva_sa_mxn",
		CLABE:       "012180001182790637",
		Directory:   "Estados de Cuenta/BBVA/BBVA SA/BBVA SA MXN",
		FilePattern: regexp.MustCompile(`^\d{4}\s+FSA\s+BBVA\s+MXN.*\.pdf$`),
		Database:    "BBVA_SA_mxn_DB.json",
		AccountType: "BBVA_SA_mxn",
		Currency:    "MXN",
		DisplayName: "BBVA SA MXN",
		Description: "BBVA Servicios Administrativos - Pesos Mexicanos",
	},
	{
		Key:         "bbva_sa_usd",
		CLABE:       "012222001182793149",
		Directory:   "Estados de Cuenta/BBVA/BBVA SA/BBVA SA USD",
		FilePattern: regexp.MustCompile(`^\d{4}\s+FSA\s+BBVA\s+USD.*\.pdf$`),
		Database:    "BBVA_SA_usd_DB.json",
		AccountType: "BBVA_SA_usd",
		Currency:    "USD",
		DisplayName: "BBVA SA USD",
		Description: "BBVA Servicios Administrativos - Dólares Americanos",
	},
	{
		Key:         "bbva_ip_corp",
		CLABE:       "012180001232011554",
		Directory:   "Estados de Cuenta/BBVA/BBVA IP/BBVA IP MXN Corp",
		FilePattern: regexp.MustCompile(`^\d{4}\s+BBVA\s+IP\s+MXN\s+Corp.*\.pdf$`),
		Database:    "BBVA_IP_corp_DB.json",
		AccountType: "BBVA_IP_corp",
		Currency:    "MXN",
		DisplayName: "BBVA IP Corp",
		Description: "BBVA Institución de Pagos - Corporativo",
	},
	{
		Key:         "bbva_ip_clientes",
		CLABE:       "012180001232011635",
		Directory:   "Estados de Cuenta/BBVA/BBVA IP/BBVA IP MXN Clientes",
		FilePattern: regexp.MustCompile(`^\d{4}\s+BBVA\s+IP\s+MXN\s+Clientes.*\.pdf$`),
		Database:    "BBVA_IP_clientes_DB.json",
		AccountType: "BBVA_IP_clientes",
		Currency:    "MXN",
		DisplayName: "BBVA IP Clientes",
		Description: "BBVA Institución de Pagos - Clientes",
	},
}

// A registry entry with a mistyped CLABE would silently reject every
// statement for that account, so the check digit is verified at startup.
func init() {
	for _, a := range registry {
		if !ValidateCLABE(a.CLABE) {
			panic("config: account " + a.Key + " has an invalid CLABE: " + a.CLABE)
		}
	}
}

// Accounts returns all registered accounts in display order.
func Accounts() []Account {
	out := make([]Account, len(registry))
	copy(out, registry)
	return out
}

// AccountByKey looks up an account by its registry key.
func AccountByKey(key string) (Account, bool) {
	for _, a := range registry {
		if a.Key == key {
			return a, true
		}
	}
	return Account{}, false
}

// AccountByCLABE looks up an account by CLABE number.
func AccountByCLABE(clabe string) (Account, bool) {
	for _, a := range registry {
		if a.CLABE == clabe {
			return a, true
		}
	}
	return Account{}, false
}

// AccountByFilename finds the account whose statement file pattern matches
// the given filename.
func AccountByFilename(filename string) (Account, bool) {
	for _, a := range registry {
		if a.FilePattern.MatchString(filename) {
			return a, true
		}
	}
	return Account{}, false
}

// AccountKeys returns the registry keys in display order.
func AccountKeys() []string {
	keys := make([]string, len(registry))
	for i, a := range registry {
		keys[i] = a.Key
	}
	return keys
}

var clabeWeights = [17]int{3, 7, 1, 3, 7, 1, 3, 7, 1, 3, 7, 1, 3, 7, 1, 3, 7}

// ValidateCLABE checks the 18-digit CLABE format and its mod-10 check digit.
func ValidateCLABE(clabe string) bool {
	if len(clabe) != 18 {
		return false
	}
	total := 0
	for i := 0; i < 17; i++ {
		d := clabe[i]
		if d < '0' || d > '9' {
			return false
		}
		total += int(d-'0') * clabeWeights[i]
	}
	last := clabe[17]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - total%10) % 10
	return int(last-'0') == check
}
