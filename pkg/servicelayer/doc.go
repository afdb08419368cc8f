// Package servicelayer is a session-managing client for the SAP Business One
// Service Layer and other REST APIs that authenticate with short-lived
// cookie sessions.
//
// A Client holds one configuration and at most one session. Every call
// checks the session first and logs in again when it is absent or expired,
// then sends the request with the session cookie attached:
//
//	client, err := servicelayer.New(servicelayer.Config{
//		Host:     "https://sap.example.com",
//		Port:     50000,
//		Version:  "v1",
//		Company:  "SBODEMO",
//		Username: "manager",
//		Password: os.Getenv("SL_PASSWORD"),
//	})
//	if err != nil {
//		return err
//	}
//	items, err := client.Get(ctx, "Items", servicelayer.WithODataQuery(odata.Query{Top: 10}))
//
// Renewal is serialized: when several goroutines find the session expired at
// the same moment, one of them logs in and the others wait for, and share,
// its outcome.
//
// All operations report failures as *Error values. Kind tells login
// failures (KindAuth) apart from failed resource calls (KindRequest), and
// Error.Result renders the {"error": true, "message": ...} document that
// bulk callers can store or print as data.
package servicelayer
