package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
)

var errNotLoggedIn = errors.New("not logged in")

// Submit prompts for a report and queues it. When online, the outbox is
// pushed right away; otherwise it waits for the next reconnect.
func (a *App) Submit(ctx context.Context) error {
	u := a.user()
	if u == nil {
		a.println("Log in to submit reports")
		return errNotLoggedIn
	}

	r, err := a.readReport()
	if err != nil {
		a.println("Report not saved:", err)
		return err
	}
	r.State, r.District, r.Village = u.State, u.District, u.Village
	r.AshaWorkerID = u.UserID

	if err := r.Validate(); err != nil {
		a.println("Report not saved:", err)
		return err
	}

	e, err := a.cache.EnqueueOutbox(ctx, r)
	if err != nil {
		a.log.Error(ctx, "failed to queue report", "error", err)
		a.println("Report not saved:", err)
		return err
	}
	a.log.Debug(ctx, "report queued", "local_id", e.LocalID)

	if a.mode() == ModeOffline {
		a.println("Saved offline, it will be sent when the connection is back")
		return nil
	}

	n, err := a.sync.SyncPendingReports(ctx)
	switch {
	case err == nil:
		a.printf("Submitted (%d sent)\n", n)
	case services.IsSkipped(err):
		a.println("Saved, it will be sent with the running sync")
	default:
		a.println("Saved offline, sending failed:", err)
	}
	return nil
}

func (a *App) readReport() (models.Report, error) {
	var (
		r   models.Report
		err error
	)
	if r.PatientName, err = GetSimpleText(a.reader, "-Patient name", a.out); err != nil {
		return r, err
	}
	if r.Age, err = GetInt(a.reader, "-Age", a.out); err != nil {
		return r, err
	}
	if r.Gender, err = GetSimpleText(a.reader, "-Gender", a.out); err != nil {
		return r, err
	}
	if r.Symptoms, err = GetSimpleText(a.reader, "-Symptoms", a.out); err != nil {
		return r, err
	}
	if r.Severity, err = GetTextOrDefault(a.reader, "-Severity (mild, moderate, severe)", "mild", a.out); err != nil {
		return r, err
	}
	if r.WaterSource, err = GetSimpleText(a.reader, "-Water source", a.out); err != nil {
		return r, err
	}
	if r.TreatmentGiven, err = GetSimpleText(a.reader, "-Treatment given", a.out); err != nil {
		return r, err
	}
	today := a.now().Format("2006-01-02")
	if r.DateOfReporting, err = GetTextOrDefault(a.reader, "-Date of reporting", today, a.out); err != nil {
		return r, err
	}
	return r, nil
}

// Reports lists the cached server reports.
func (a *App) Reports(ctx context.Context) error {
	reports, err := a.cache.ReadCache(ctx)
	if err != nil {
		a.println("Cannot read reports:", err)
		return err
	}
	if len(reports) == 0 {
		a.println("No reports cached, run 'sync' when online")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPATIENT\tAGE\tSEVERITY\tVILLAGE")
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.DateOfReporting, r.PatientName, r.Age, r.Severity, r.Village)
	}
	return tw.Flush()
}

// Pending lists reports still waiting in the outbox.
func (a *App) Pending(ctx context.Context) error {
	pending, err := a.cache.ListPendingOutbox(ctx)
	if err != nil {
		a.println("Cannot read outbox:", err)
		return err
	}
	if len(pending) == 0 {
		a.println("Nothing pending")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCAL ID\tQUEUED\tPATIENT")
	for _, e := range pending {
		name := "?"
		if r, err := e.Report(); err == nil {
			name = r.PatientName
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.LocalID, e.CreatedAt.Local().Format("2006-01-02 15:04"), name)
	}
	return tw.Flush()
}

// Status prints the session, connectivity and queue state.
func (a *App) Status(ctx context.Context) error {
	if u := a.user(); u != nil {
		a.printf("User:    %s\n", u)
	} else {
		a.println("User:    not logged in")
	}
	a.printf("Mode:    %s\n", a.mode())
	if a.router != nil {
		a.printf("Screen:  %s\n", screenName(a.router.Current()))
	}

	pending, err := a.cache.ListPendingOutbox(ctx)
	if err != nil {
		return err
	}
	cached, err := a.cache.ReadCache(ctx)
	if err != nil {
		return err
	}
	a.printf("Pending: %d\n", len(pending))
	a.printf("Cached:  %d\n", len(cached))
	return nil
}
