// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package app_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/app"
	"github.com/vfriends/vfriends/internal/auth"
	"github.com/vfriends/vfriends/internal/config"
	"github.com/vfriends/vfriends/internal/event"
	"github.com/vfriends/vfriends/internal/eventbus"
	"github.com/vfriends/vfriends/internal/secret"
	"github.com/vfriends/vfriends/internal/settings"
)

const testSettings = `{
	// usr_1 gets a custom message, usr_2 is muted.
	"defaultMessage": "{name} is online",
	"friendSettings": {
		"usr_1": {"enabled": true, "useOverride": true, "messageOverride": "{name} just logged in"},
		"usr_2": false
	}
}`

func friendOnline(userID, name string) string {
	return `{"type":"friend-online","content":"{\"userId\":\"` + userID +
		`\",\"user\":{\"displayName\":\"` + name + `\"}}"}`
}

func codeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

var _ = Describe("App", func() {
	var (
		ctx      context.Context
		api      *fakeAPI
		stream   *fakePipeline
		secrets  *secret.MemoryStore
		notified *recorder
		cfg      *config.Config
		a        *app.App
	)

	newApp := func() *app.App {
		created, err := app.New(app.Options{
			Config:   cfg,
			Secrets:  secrets,
			Notifier: notified.notifier(),
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(created.Close)
		return created
	}

	login := func() {
		Expect(a.BeginLogin(ctx, testUsername, testPassword).Type).To(Equal(auth.OutcomeTwoFactorRequired))
		Expect(a.VerifyTwoFactor(ctx, testTOTP, "totp").Type).To(Equal(auth.OutcomeSuccess))
	}

	BeforeEach(func() {
		ctx = context.Background()
		api = newFakeAPI()
		stream = newFakePipeline()
		DeferCleanup(api.server.Close)
		DeferCleanup(stream.close)

		dir := GinkgoT().TempDir()
		settingsPath := filepath.Join(dir, "settings.json")
		Expect(os.WriteFile(settingsPath, []byte(testSettings), 0o600)).To(Succeed())

		defaults := config.Default()
		cfg = &defaults
		cfg.API.BaseURL = api.baseURL()
		cfg.API.UserAgent = "vfriends-e2e"
		cfg.API.RateLimit = 0
		cfg.Pipeline.URL = stream.url()
		cfg.Pipeline.Origin = "http://localhost"
		cfg.Pipeline.BaseDelay = 10 * time.Millisecond
		cfg.Pipeline.MaxDelay = 50 * time.Millisecond
		cfg.Notify.Workers = 1
		cfg.Notify.Icons = false
		cfg.Secrets.Backend = config.BackendMemory
		cfg.Settings.File = settingsPath

		secrets = secret.NewMemoryStore()
		notified = &recorder{}
		a = newApp()
	})

	Describe("New", func() {
		It("requires a config", func() {
			_, err := app.New(app.Options{})
			Expect(err).To(HaveOccurred())
		})

		It("starts logged out and not ready", func() {
			Expect(a.Ready()).To(BeFalse())
			Expect(a.PipelineRunning()).To(BeFalse())
		})
	})

	Describe("login with a second factor", func() {
		It("publishes the protocol on the auth topic", func() {
			events := a.Bus().Subscribe(eventbus.TopicAuth)

			outcome := a.BeginLogin(ctx, testUsername, testPassword)
			Expect(outcome.Methods).To(Equal([]string{"totp", "otp"}))
			Expect(outcome.Message).To(Equal("Please enter your 2FA code"))

			Expect(events).To(Receive(HaveField("Type", string(auth.OutcomeStarted))))
			Expect(events).To(Receive(HaveField("Type", string(auth.OutcomeTwoFactorRequired))))
			Expect(a.State().PendingTwoFactor).To(BeTrue())
		})

		It("keeps the challenge pending after a rejected code", func() {
			Expect(a.BeginLogin(ctx, testUsername, testPassword).Type).To(Equal(auth.OutcomeTwoFactorRequired))

			outcome := a.VerifyTwoFactor(ctx, "000000", "totp")

			Expect(outcome.Type).To(Equal(auth.OutcomeFailure))
			Expect(a.State().PendingTwoFactor).To(BeTrue())
			Expect(a.Ready()).To(BeFalse())
		})

		It("saves the cookie and starts the pipeline with its token", func() {
			login()

			Expect(a.Ready()).To(BeTrue())
			saved, err := secrets.Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(saved).To(ContainSubstring("auth=" + testCookie))
			Eventually(stream.tokens).Should(Receive(Equal(testCookie)))
			Expect(a.PipelineRunning()).To(BeTrue())
		})

		It("fails with the remote status code on bad credentials", func() {
			outcome := a.BeginLogin(ctx, testUsername, "wrong")

			Expect(outcome.Type).To(Equal(auth.OutcomeFailure))
			Expect(outcome.Code).To(Equal("401"))
			Expect(outcome.Message).To(Equal("Invalid Username/Email or Password"))
			Expect(a.State().HasCredentials).To(BeFalse())
		})
	})

	Describe("pipeline events", func() {
		It("notifies enabled friends with their resolved message", func() {
			pipelineEvents := a.Bus().Subscribe(eventbus.TopicPipeline)
			login()
			Eventually(stream.tokens).Should(Receive())

			stream.frames <- `{"type":"friend-location","content":{"userId":"usr_1"}}`
			stream.frames <- friendOnline("usr_2", "Sleepy")
			stream.frames <- friendOnline("usr_1", "Nyx Prime")

			Eventually(notified.all).Should(HaveLen(1))
			n := notified.all()[0]
			Expect(n.UserID).To(Equal("usr_1"))
			Expect(n.Title).To(Equal("VRChat"))
			Expect(n.Body).To(Equal("Nyx Prime just logged in"))

			Eventually(pipelineEvents).Should(Receive(HaveField("Type", "friend-location")))
			Eventually(pipelineEvents).Should(Receive(HaveField("Payload", BeAssignableToTypeOf(event.FriendOnline{}))))
		})

		It("uses updated defaults without a restart", func() {
			login()
			Eventually(stream.tokens).Should(Receive())

			msg := "{name} says hi"
			_, err := a.Settings().UpdateDefaults(ctx, settings.DefaultsPatch{Message: &msg})
			Expect(err).NotTo(HaveOccurred())

			stream.frames <- friendOnline("usr_9", "Stranger")

			Eventually(notified.all).Should(ContainElement(HaveField("Body", "Stranger says hi")))
		})

		It("reconnects after the pipeline drops", func() {
			login()
			Eventually(stream.tokens).Should(Receive())

			stream.kick <- struct{}{}

			Eventually(stream.tokens, time.Second).Should(Receive(Equal(testCookie)))
		})
	})

	Describe("session restore", func() {
		It("resumes from the saved cookie in a new app", func() {
			login()
			a.Close()

			restored := newApp()
			user := restored.RestoreSession(ctx)

			Expect(user).NotTo(BeNil())
			Expect(user.ID).To(Equal("usr_me"))
			Expect(restored.Ready()).To(BeTrue())
			Eventually(restored.PipelineRunning).Should(BeTrue())
		})

		It("returns nil without a saved cookie", func() {
			Expect(a.RestoreSession(ctx)).To(BeNil())
		})

		It("runs until cancelled", func() {
			login()
			a.Close()
			restored := newApp()

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- restored.Run(runCtx) }()

			Eventually(restored.Ready).Should(BeTrue())
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	Describe("logout", func() {
		It("stops the pipeline and forgets the cookie", func() {
			login()
			Eventually(a.PipelineRunning).Should(BeTrue())

			Expect(a.Logout().Type).To(Equal(auth.OutcomeLoggedOut))

			Expect(a.PipelineRunning()).To(BeFalse())
			Expect(a.Ready()).To(BeFalse())
			_, err := secrets.Get()
			Expect(err).To(MatchError(secret.ErrNotFound))
		})
	})

	Describe("friends and worlds", func() {
		It("refuses without a session", func() {
			_, err := a.FetchFriends(ctx)
			Expect(codeOf(err)).To(Equal("APP_NOT_AUTHENTICATED"))

			_, err = a.FetchWorld(ctx, "wrld_1")
			Expect(codeOf(err)).To(Equal("APP_NOT_AUTHENTICATED"))
		})

		It("merges online and offline friends and publishes them", func() {
			updates := a.Bus().Subscribe(eventbus.TopicFriends)
			login()

			list, err := a.FetchFriends(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal("usr_1"))
			Expect(list[1].ID).To(Equal("usr_2"))
			Expect(updates).To(Receive(HaveField("Type", app.EventFriendsList)))
		})

		It("fetches a world", func() {
			login()

			world, err := a.FetchWorld(ctx, "wrld_1")

			Expect(err).NotTo(HaveOccurred())
			Expect(world.Name).To(Equal("The Black Cat"))
			Expect(world.Capacity).To(Equal(32))
		})
	})
})
