package app

import (
	"context"
	"testing"

	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/eligibility"
)

func TestSharedWritesFanOutBeforeSubmission(t *testing.T) {
	repo := newFakeClaimRepo()
	service, set := startJourney(t, repo,
		eligibility.PolicyEarlyCareerPayments,
		eligibility.PolicyLevellingUpPremiumPayments)

	if err := service.UpdateShared(context.Background(), set, SharedAnswers{
		Email:        strPtr("new.address@example.com"),
		AddressLine1: strPtr("2 Difference Lane"),
	}); err != nil {
		t.Fatalf("expected shared update, got %v", err)
	}

	for _, c := range set.Claims() {
		stored, err := repo.GetByID(context.Background(), c.ID)
		if err != nil {
			t.Fatalf("expected stored claim, got %v", err)
		}
		if stored.Email != "new.address@example.com" || stored.AddressLine1 != "2 Difference Lane" {
			t.Fatalf("expected the write on every claim, got email=%q address=%q for %s",
				stored.Email, stored.AddressLine1, stored.Policy())
		}
		if stored.EmailVerified {
			t.Fatal("expected the email change to clear the verified flag")
		}
	}
}

func TestSharedWritesLandOnMainClaimOnlyAfterSubmission(t *testing.T) {
	repo := newFakeClaimRepo()
	service, set := startJourney(t, repo,
		eligibility.PolicyEarlyCareerPayments,
		eligibility.PolicyLevellingUpPremiumPayments)
	if err := service.UpdateEligibility(context.Background(), set, eligibility.PolicyEarlyCareerPayments, completeEligibility()); err != nil {
		t.Fatalf("expected eligibility update, got %v", err)
	}
	main := set.MainClaim()
	sibling := set.ClaimFor(eligibility.PolicyLevellingUpPremiumPayments)
	if _, err := service.Submit(context.Background(), main.ID); err != nil {
		t.Fatalf("expected submit, got %v", err)
	}

	set, err := service.CurrentSet(context.Background(), main.ClaimantID)
	if err != nil {
		t.Fatalf("expected current set, got %v", err)
	}
	if err := service.UpdateShared(context.Background(), set, SharedAnswers{
		AddressLine1: strPtr("3 Post Submission Way"),
	}); err != nil {
		t.Fatalf("expected shared update, got %v", err)
	}

	storedMain, _ := repo.GetByID(context.Background(), main.ID)
	storedSibling, _ := repo.GetByID(context.Background(), sibling.ID)
	if storedMain.AddressLine1 != "3 Post Submission Way" {
		t.Fatalf("expected the main claim updated, got %q", storedMain.AddressLine1)
	}
	if storedSibling.AddressLine1 == "3 Post Submission Way" {
		t.Fatal("expected the sibling to be left untouched after submission")
	}
}

func mustRecord(t *testing.T, policy eligibility.Policy) eligibility.Record {
	t.Helper()
	record, err := eligibility.NewRecord(policy)
	if err != nil {
		t.Fatalf("expected eligibility record, got %v", err)
	}
	return record
}

func TestWriteTargetsOrderSiblingsBeforeMain(t *testing.T) {
	main := &claim.Claim{ID: "main", Eligibility: mustRecord(t, eligibility.PolicyEarlyCareerPayments)}
	sibling := &claim.Claim{ID: "sibling", Eligibility: mustRecord(t, eligibility.PolicyLevellingUpPremiumPayments)}

	set, err := NewClaimSet([]*claim.Claim{main, sibling}, eligibility.PolicyEarlyCareerPayments)
	if err != nil {
		t.Fatalf("expected claim set, got %v", err)
	}
	targets := set.writeTargets()
	if len(targets) != 2 || targets[0] != sibling || targets[1] != main {
		t.Fatal("expected siblings to be written before the main claim")
	}
}

func TestApplyEligibilityTouchesNamedPolicyOnly(t *testing.T) {
	repo := newFakeClaimRepo()
	service, set := startJourney(t, repo,
		eligibility.PolicyEarlyCareerPayments,
		eligibility.PolicyLevellingUpPremiumPayments)

	if err := service.UpdateEligibility(context.Background(), set, eligibility.PolicyLevellingUpPremiumPayments, eligibility.Patch{
		Subject: strPtr("computing"),
	}); err != nil {
		t.Fatalf("expected eligibility update, got %v", err)
	}

	lup, _ := repo.GetByID(context.Background(), set.ClaimFor(eligibility.PolicyLevellingUpPremiumPayments).ID)
	ecp, _ := repo.GetByID(context.Background(), set.ClaimFor(eligibility.PolicyEarlyCareerPayments).ID)
	if lup.Eligibility.(*eligibility.LevellingUpPremiumPayments).Subject != "computing" {
		t.Fatal("expected the named policy's record updated")
	}
	if ecp.Eligibility.(*eligibility.EarlyCareerPayments).Subject != "" {
		t.Fatal("expected the other policy's record untouched")
	}
}

func TestResetDependentAnswersFansOutToEveryClaim(t *testing.T) {
	repo := newFakeClaimRepo()
	service, set := startJourney(t, repo,
		eligibility.PolicyEarlyCareerPayments,
		eligibility.PolicyLevellingUpPremiumPayments)
	if err := service.UpdateEligibility(context.Background(), set, eligibility.PolicyEarlyCareerPayments, completeEligibility()); err != nil {
		t.Fatalf("expected eligibility update, got %v", err)
	}
	if err := service.UpdateEligibility(context.Background(), set, eligibility.PolicyLevellingUpPremiumPayments, eligibility.Patch{
		Subject: strPtr("physics"),
	}); err != nil {
		t.Fatalf("expected eligibility update, got %v", err)
	}
	main := set.MainClaim()
	if _, err := service.Submit(context.Background(), main.ID); err != nil {
		t.Fatalf("expected submit, got %v", err)
	}

	set, err := service.CurrentSet(context.Background(), main.ClaimantID)
	if err != nil {
		t.Fatalf("expected current set, got %v", err)
	}
	if err := service.ResetDependentAnswers(context.Background(), set); err != nil {
		t.Fatalf("expected reset, got %v", err)
	}

	// The reset is uniform: submitted claims are reset too.
	ecp, _ := repo.GetByID(context.Background(), main.ID)
	lup, _ := repo.GetByID(context.Background(), set.ClaimFor(eligibility.PolicyLevellingUpPremiumPayments).ID)
	if ecp.Eligibility.(*eligibility.EarlyCareerPayments).Subject != "" {
		t.Fatal("expected the submitted claim's dependent answers cleared")
	}
	if lup.Eligibility.(*eligibility.LevellingUpPremiumPayments).Subject != "" {
		t.Fatal("expected the sibling's dependent answers cleared")
	}
}

func TestNewClaimSetRejectsDuplicatePolicies(t *testing.T) {
	a := &claim.Claim{ID: "a", Eligibility: mustRecord(t, eligibility.PolicyStudentLoans)}
	b := &claim.Claim{ID: "b", Eligibility: mustRecord(t, eligibility.PolicyStudentLoans)}

	if _, err := NewClaimSet([]*claim.Claim{a, b}, eligibility.PolicyStudentLoans); err == nil {
		t.Fatal("expected duplicate policies to be rejected")
	}
	if _, err := NewClaimSet(nil, eligibility.PolicyStudentLoans); err == nil {
		t.Fatal("expected an empty set to be rejected")
	}
}
