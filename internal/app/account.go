package app

// AccountHelper exposes the user accounts the daemon may sign in with. The
// open-source build has none.
type AccountHelper struct{}

// Accounts returns the eligible accounts.
func (*AccountHelper) Accounts() []string { return nil }

// FirstEligibleAccount returns the account to use, if any.
func (*AccountHelper) FirstEligibleAccount() (string, bool) { return "", false }
