package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledgerbot/models"
	"ledgerbot/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
settings:
  required_channels: ["1001", "1002"]
  referral_reward: 2
  support_contact: "@Help"
rewards:
  - name: Premium
    cost: 10
    discount: 20
    codes: [P-1, P-2]
    codes_file: premium.txt
  - name: " Basic "
    cost: 5
`

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(sampleCatalog), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "premium.txt"), []byte("# batch 2\nP-3\n\n P-4 \n"), 0o600))

	catalog, err := loadCatalog(filepath.Join(dir, "catalog.yaml"))

	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002"}, catalog.Settings.RequiredChannels)
	require.NotNil(t, catalog.Settings.ReferralReward)
	assert.Equal(t, int64(2), *catalog.Settings.ReferralReward)
	assert.Nil(t, catalog.Settings.ProofsChannel)
	require.Len(t, catalog.Rewards, 2)
	assert.Equal(t, []string{"P-1", "P-2", "P-3", "P-4"}, catalog.Rewards[0].Codes)
	assert.Equal(t, "Basic", catalog.Rewards[1].Name)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":     "rewards: [",
		"missing name":  "rewards:\n  - cost: 3\n",
		"duplicate":     "rewards:\n  - name: A\n  - name: a\n",
		"bad cost type": "rewards:\n  - name: A\n    cost: lots\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingCodesFile(t *testing.T) {
	dir := t.TempDir()
	doc := "rewards:\n  - name: A\n    cost: 1\n    codes_file: nope.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(doc), 0o600))

	_, err := loadCatalog(filepath.Join(dir, "catalog.yaml"))
	assert.ErrorContains(t, err, `reward "A"`)
}

func TestImportCatalog(t *testing.T) {
	ctx := context.Background()
	admin := new(service.MockAdminService)
	settings := new(service.MockSettingsService)

	catalog, err := parseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	catalog.Rewards = append(catalog.Rewards, catalogReward{Name: "Gold", Cost: 50, Codes: []string{"G-1"}})

	settings.On("SetRequiredChannels", ctx, []string{"1001", "1002"}).Return(nil)
	settings.On("SetReferralReward", ctx, int64(2)).Return(nil)
	settings.On("Set", ctx, models.SettingSupportContact, "@Help").Return(nil)

	// New reward
	admin.On("FindReward", ctx, "Premium").Return(nil, service.ErrRewardNotFound)
	admin.On("CreateReward", ctx, "Premium", int64(10), 20).Return(&models.RewardDefinition{ID: 1, Name: "Premium", Cost: 10, DiscountPercent: 20}, nil)
	admin.On("AddInventory", ctx, int64(1), []string{"P-1", "P-2"}).Return(int64(2), nil)

	// Unchanged reward without codes
	admin.On("FindReward", ctx, "Basic").Return(&models.RewardDefinition{ID: 2, Name: "Basic", Cost: 5}, nil)

	// Repriced reward
	admin.On("FindReward", ctx, "Gold").Return(&models.RewardDefinition{ID: 3, Name: "Gold", Cost: 40}, nil)
	admin.On("UpdateReward", ctx, int64(3), int64(50), 0).Return(&models.RewardDefinition{ID: 3, Name: "Gold", Cost: 50}, nil)
	admin.On("AddInventory", ctx, int64(3), []string{"G-1"}).Return(int64(1), nil)

	summary, err := importCatalog(ctx, admin, settings, catalog)

	require.NoError(t, err)
	assert.Equal(t, &importSummary{Created: 1, Updated: 1, UnitsAdded: 3, SettingsChanged: 3}, summary)
	admin.AssertExpectations(t)
	settings.AssertExpectations(t)
	admin.AssertNotCalled(t, "UpdateReward", ctx, int64(2), mock.Anything, mock.Anything)
}

func TestImportCatalog_StopsOnRetiredReward(t *testing.T) {
	ctx := context.Background()
	admin := new(service.MockAdminService)
	settings := new(service.MockSettingsService)

	catalog := &catalogFile{Rewards: []catalogReward{{Name: "Old", Cost: 1, Codes: []string{"X"}}}}
	admin.On("FindReward", ctx, "Old").Return(&models.RewardDefinition{ID: 9, Name: "Old", Cost: 1, Retired: true}, nil)

	_, err := importCatalog(ctx, admin, settings, catalog)

	assert.ErrorContains(t, err, "retired")
	admin.AssertNotCalled(t, "AddInventory", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", "production"))
	assert.NoError(t, setupLogging("info", "development"))
	assert.Error(t, setupLogging("loud", "development"))
}
