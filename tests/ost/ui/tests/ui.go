package tests

import (
	"context"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ovirt/ost-gotests/tests/internal/selenium"
	"github.com/ovirt/ost-gotests/tests/internal/url"
	. "github.com/ovirt/ost-gotests/tests/ost/internal/ostinittools"
	"github.com/ovirt/ost-gotests/tests/ost/internal/ostparams"
	"github.com/ovirt/ost-gotests/tests/ost/ui/internal/uiparams"
)

var _ = Describe(
	"oVirt UI grid",
	Ordered,
	ContinueOnFailure,
	Label(ostparams.LabelUI), func() {
		var grid *selenium.Running

		BeforeAll(func() {
			By("Starting the selenium grid")

			config := selenium.Config{
				EngineFQDN:    OSTConfig.EngineFQDN,
				EngineIP:      OSTConfig.EngineIP,
				HubImage:      OSTConfig.GridHubImage,
				NodeImages:    OSTConfig.GridNodeImages,
				HubPort:       OSTConfig.GridHubPort,
				HealthTimeout: uiparams.GridStartTimeout,
			}

			var err error

			grid, err = selenium.Start(context.Background(), nil, config)
			Expect(err).ToNot(HaveOccurred(), "Selenium grid failed to start")
		})

		AfterAll(func() {
			if grid == nil {
				return
			}

			By("Tearing down the selenium grid")
			Expect(grid.Stop()).ToNot(HaveOccurred(), "Failed to tear down the selenium grid")
		})

		It("Verify the hub reports every node ready", func(ctx SpecContext) {
			body, status, err := url.Fetch(ctx, strings.TrimSuffix(grid.URL, "/")+"/status", http.MethodGet, false)
			Expect(err).ToNot(HaveOccurred(), "Failed to query the hub status")
			Expect(status).To(Equal(http.StatusOK))

			nodes := len(OSTConfig.GridNodeImages)
			if nodes == 0 {
				nodes = 2
			}

			Expect(selenium.IsReady(body, nodes)).To(BeTrue(), "Hub does not report every node ready")
		})

		It("Verify the administration portal is served", func(ctx SpecContext) {
			address := OSTConfig.EngineIP
			if address == "" {
				address = OSTConfig.EngineFQDN
			}

			_, status, err := url.Fetch(ctx, "https://"+address+uiparams.WebAdminPath, http.MethodGet, true)
			Expect(err).ToNot(HaveOccurred(), "Failed to reach the administration portal")
			Expect(status).To(Equal(http.StatusOK))
		})
	})
