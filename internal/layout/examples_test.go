package layout_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/layoutopt/internal/layout"
)

var _ = Describe("bundled examples", func() {
	files, _ := filepath.Glob(filepath.Join("..", "..", "examples", "*.json"))
	yamls, _ := filepath.Glob(filepath.Join("..", "..", "examples", "row.yaml"))
	files = append(files, yamls...)

	It("finds the example descriptions", func() {
		Expect(files).NotTo(BeEmpty())
	})

	for _, path := range files {
		It("builds "+filepath.Base(path), func() {
			desc, err := layout.DecodeFile(path)
			Expect(err).NotTo(HaveOccurred())

			st, err := layout.New(desc, layout.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Terms).NotTo(BeEmpty())
			Expect(st.Energy).To(BeNumerically(">", 0))
		})
	}
})
