/*

Types for the staking accrual engine.

*/

package types

// StakePosition is one address's stake. RewardBalance holds settled-but-
// unclaimed reward; accrual since LastRewardTime is computed lazily.
type StakePosition struct {
	Staked         uint64 `json:"staked"`
	LastRewardTime uint64 `json:"last_reward_time"`
	RewardBalance  uint64 `json:"reward_balance"`
}

// StakingInfo is the pool-wide staking state.
type StakingInfo struct {
	TotalStaked             uint64 `json:"total_staked"`
	TotalRewardsDistributed uint64 `json:"total_rewards_distributed"`
	RewardAmount            uint64 `json:"reward_amount"`
	RewardInterval          uint64 `json:"reward_interval"`
	Paused                  bool   `json:"paused"`
}

// UserStakingInfo is one address's staking view including lazily accrued but
// not yet settled reward.
type UserStakingInfo struct {
	Staked        uint64 `json:"staked"`
	RewardBalance uint64 `json:"reward_balance"`
	Pending       uint64 `json:"pending"`
	TotalRewards  uint64 `json:"total_rewards"`
}
