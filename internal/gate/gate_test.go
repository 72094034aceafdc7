package gate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/models"
)

var _ = Describe("Approval gate", func() {
	var (
		pending  *models.Profile
		approved *models.Profile
	)

	BeforeEach(func() {
		pending = models.NewPendingProfile("user_1")
		approved = models.NewPendingProfile("user_2")
		approved.Approved = true
	})

	Describe("Next", func() {
		Context("from unauthenticated", func() {
			It("resolves a missing profile to pending approval", func() {
				Expect(gate.Next(gate.Unauthenticated, gate.SignedIn{})).To(Equal(gate.PendingApproval))
			})

			It("resolves an unapproved profile to pending approval", func() {
				Expect(gate.Next(gate.Unauthenticated, gate.SignedIn{Profile: pending})).To(Equal(gate.PendingApproval))
			})

			It("resolves an approved profile to active", func() {
				Expect(gate.Next(gate.Unauthenticated, gate.SignedIn{Profile: approved})).To(Equal(gate.Active))
			})

			It("never reaches master through a regular sign-in", func() {
				master := models.NewMasterProfile()
				Expect(gate.Next(gate.Unauthenticated, gate.SignedIn{Profile: master})).To(Equal(gate.Active))
			})

			It("reaches master only through master sign-in", func() {
				Expect(gate.Next(gate.Unauthenticated, gate.MasterSignedIn{})).To(Equal(gate.MasterActive))
			})

			It("rejects sign-out and profile changes", func() {
				_, err := gate.Next(gate.Unauthenticated, gate.SignedOut{})
				Expect(err).To(MatchError(gate.ErrInvalidTransition))

				_, err = gate.Next(gate.Unauthenticated, gate.ProfileChanged{Profile: approved})
				Expect(err).To(MatchError(gate.ErrInvalidTransition))
			})
		})

		Context("from pending approval", func() {
			It("activates when the profile is approved", func() {
				Expect(gate.Next(gate.PendingApproval, gate.ProfileChanged{Profile: approved})).To(Equal(gate.Active))
			})

			It("stays pending on an unrelated profile change", func() {
				Expect(gate.Next(gate.PendingApproval, gate.ProfileChanged{Profile: pending})).To(Equal(gate.PendingApproval))
			})

			It("does not accept a second sign-in", func() {
				_, err := gate.Next(gate.PendingApproval, gate.SignedIn{Profile: approved})
				Expect(err).To(MatchError(gate.ErrInvalidTransition))
			})
		})

		Context("between active and master", func() {
			It("has no path from active to master", func() {
				_, err := gate.Next(gate.Active, gate.MasterSignedIn{})
				Expect(err).To(MatchError(gate.ErrInvalidTransition))
			})

			It("has no path from master to active", func() {
				state, err := gate.Next(gate.MasterActive, gate.ProfileChanged{Profile: approved})
				Expect(err).NotTo(HaveOccurred())
				Expect(state).To(Equal(gate.MasterActive))
			})
		})

		DescribeTable("sign-out from every authenticated state",
			func(from gate.State) {
				Expect(gate.Next(from, gate.SignedOut{})).To(Equal(gate.Unauthenticated))
			},
			Entry("pending approval", gate.PendingApproval),
			Entry("active", gate.Active),
			Entry("master active", gate.MasterActive),
		)
	})

	Describe("Machine", func() {
		It("starts unauthenticated and reports changes", func() {
			m := gate.NewMachine()
			Expect(m.Current()).To(Equal(gate.Unauthenticated))

			state, changed, err := m.Apply(gate.SignedIn{Profile: pending})
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(state).To(Equal(gate.PendingApproval))

			_, changed, err = m.Apply(gate.ProfileChanged{Profile: pending})
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeFalse())

			state, changed, err = m.Apply(gate.ProfileChanged{Profile: approved})
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(state).To(Equal(gate.Active))
		})

		It("keeps its state on an invalid transition", func() {
			m := gate.NewMachine()
			_, _, err := m.Apply(gate.SignedOut{})
			Expect(err).To(HaveOccurred())
			Expect(m.Current()).To(Equal(gate.Unauthenticated))
		})
	})
})
