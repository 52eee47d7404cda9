package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body><ul>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="https://www.linkedin.com/in/jane-doe/?miniProfileUrn=x"><span aria-hidden="true">Jane   Doe</span></a></span>
  <div class="entity-result__primary-subtitle"> Data Engineer </div>
  <div class="entity-result__secondary-subtitle">Paris</div>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="https://www.linkedin.com/in/john-smith-4b2a91/"></a></span>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="https://www.linkedin.com/in/jane-doe/"><span aria-hidden="true">Jane Doe</span></a></span>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href="/company/acme/">Acme</a></span>
</li>
</ul></body></html>`

const profilePage = `<html><body><main class="scaffold-layout">
<h1 class="text-heading-xlarge">Jane Doe</h1>
<div class="text-body-medium break-words">Data Engineer at Acme</div>
<span class="text-body-small inline t-black--light break-words">Paris, Île-de-France</span>
<ul><li class="text-body-small"><span class="t-bold">500+</span> connections</li></ul>
<section><div id="about"></div><div class="display-flex"><span aria-hidden="true">Building data platforms for ten years.</span></div></section>
<section><div id="experience"></div><div><ul>
  <li class="artdeco-list__item"><div class="display-flex"><span aria-hidden="true">Data Engineer</span></div>
    <span class="t-14 t-normal"><span aria-hidden="true">Acme</span></span>
    <span class="t-14 t-normal t-black--light"><span aria-hidden="true">2021 - Present</span></span></li>
  <li class="artdeco-list__item"><div class="display-flex"><span aria-hidden="true">Analyst</span></div>
    <span class="t-14 t-normal"><span aria-hidden="true">Initech</span></span></li>
  <li class="artdeco-list__item"></li>
</ul></div></section>
<section><div id="education"></div><div><ul>
  <li class="artdeco-list__item"><div class="display-flex"><span aria-hidden="true">MIT</span></div>
    <span class="t-14 t-normal"><span aria-hidden="true">MSc</span></span></li>
</ul></div></section>
<section><div id="skills"></div><div><ul>
  <li><span aria-hidden="true">Go</span></li>
  <li><span aria-hidden="true">SQL</span></li>
  <li><span aria-hidden="true">Go</span></li>
</ul></div></section>
<div class="artdeco-modal">
  <section class="ci-email"><a href="mailto: jane@example.com">jane@example.com</a></section>
  <section class="ci-phone"><span class="t-14 t-black t-normal">+33 1 23 45 67 89</span></section>
  <section class="ci-websites"><a class="link-without-visited-state" href="https://jane.dev">jane.dev</a></section>
</div>
</main></body></html>`

func TestSearchHits(t *testing.T) {
	doc, err := Parse(searchPage)
	require.NoError(t, err)

	hits := doc.SearchHits()
	require.Len(t, hits, 2)

	assert.Equal(t, "jane-doe", hits[0].PublicID)
	assert.Equal(t, "Jane Doe", hits[0].FullName)
	assert.Equal(t, "Data Engineer", hits[0].Headline)
	assert.Equal(t, "Paris", hits[0].Location)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe/", hits[0].ProfileURL)

	assert.Equal(t, "john-smith-4b2a91", hits[1].PublicID)
	assert.Equal(t, "John Smith", hits[1].FullName)
}

func TestProfileFields(t *testing.T) {
	doc, err := Parse(profilePage)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", doc.Name())
	assert.Equal(t, "Data Engineer at Acme", doc.Headline())
	assert.Equal(t, "Paris, Île-de-France", doc.Location())
	assert.Equal(t, "500+", doc.Connections())
	assert.Equal(t, "Building data platforms for ten years.", doc.About())

	exps := doc.Experiences()
	require.Len(t, exps, 2)
	assert.Equal(t, "Data Engineer", exps[0].Title)
	assert.Equal(t, "Acme", exps[0].Company)
	assert.Equal(t, "2021 - Present", exps[0].DateRange)
	assert.Equal(t, "Initech", exps[1].Company)

	edu := doc.Education()
	require.Len(t, edu, 1)
	assert.Equal(t, "MIT", edu[0].School)
	assert.Equal(t, "MSc", edu[0].Degree)

	assert.Equal(t, []string{"Go", "SQL"}, doc.Skills())
	assert.Equal(t, "jane@example.com", doc.Email())
	assert.Equal(t, "+33 1 23 45 67 89", doc.Phone())
	assert.Equal(t, "https://jane.dev", doc.Website())
}

func TestMissingFieldsAreEmpty(t *testing.T) {
	doc, err := Parse(`<html><body><section><div id="about"></div><span aria-hidden="true">short</span></section>
<section class="ci-phone"><span class="t-14 t-black t-normal">n/a</span></section></body></html>`)
	require.NoError(t, err)

	assert.Empty(t, doc.Name())
	assert.Empty(t, doc.About())
	assert.Empty(t, doc.Phone())
	assert.Empty(t, doc.Email())
	assert.Empty(t, doc.Website())
	assert.Empty(t, doc.Experiences())
	assert.Empty(t, doc.Skills())
	assert.Empty(t, doc.SearchHits())
}

func TestGuessNameFromID(t *testing.T) {
	tests := map[string]string{
		"jane-doe":          "Jane Doe",
		"john-smith-4b2a91": "John Smith",
		"ada_lovelace-42":   "Ada Lovelace",
		"dave-beef":         "Dave Beef",
	}
	for id, want := range tests {
		assert.Equal(t, want, GuessNameFromID(id), id)
	}
}

func TestPublicIDFromURL(t *testing.T) {
	assert.Equal(t, "jane-doe", PublicIDFromURL("https://www.linkedin.com/in/jane-doe/"))
	assert.Equal(t, "jane-doe", PublicIDFromURL("/in/jane-doe?trk=x"))
	assert.Empty(t, PublicIDFromURL("https://www.linkedin.com/company/acme/"))
}
