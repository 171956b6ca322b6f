// Package reports provides the client-side persistence of the read cache:
// health reports fetched from the server, keyed by their remote id.
//
// The cache is never edited field by field. It is either replaced wholesale
// (DeleteAll + Insert inside one transaction) or extended with reports whose
// remote id is not present yet.
//
//	repo := reports.NewSQLiteRepository(db)
//	ids, _ := repo.RemoteIDs(ctx)
//	_ = repo.Insert(ctx, &report)
//	list, _ := repo.GetAll(ctx)
package reports
