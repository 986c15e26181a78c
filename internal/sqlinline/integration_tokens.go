package sqlinline

const QSelectIntegrationToken = `--sql eb204c2d-3f91-448b-a2b9-b532d73878b2
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 057ecb29-a957-4985-94c2-0b93e2074083
insert into integration_tokens(provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update
set token = excluded.token, properties = excluded.properties, updated_at = now();
`
